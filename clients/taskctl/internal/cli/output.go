package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// encode печатает v в json или yaml; false - нужен табличный вывод
func (a *app) encode(v any) (bool, error) {
	switch a.output {
	case formatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func (a *app) printTasks(tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	if done, err := a.encode(tasks); done {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "No tasks found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tOWNER")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, orDash(t.DueDate), t.UserID)
	}
	return tw.Flush()
}

func (a *app) printStats(st models.Stats) error {
	if done, err := a.encode(st); done {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%d\n", st.Total)
	fmt.Fprintf(tw, "Todo\t%d\n", st.Todo)
	fmt.Fprintf(tw, "In progress\t%d\n", st.InProgress)
	fmt.Fprintf(tw, "Completed\t%d\n", st.Completed)
	return tw.Flush()
}

func (a *app) printUser(u models.User) error {
	if done, err := a.encode(u); done {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\nid: %s\nrole: %s\n", u.Name, u.Email, u.ID, u.Role)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
