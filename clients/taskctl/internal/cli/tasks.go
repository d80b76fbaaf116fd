package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
)

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Manage tasks visible to the signed-in user",
	}
	cmd.AddCommand(
		newTasksListCmd(a),
		newTasksGetCmd(a),
		newTasksCreateCmd(a),
		newTasksUpdateCmd(a),
		newTasksStatusCmd(a),
		newTasksDeleteCmd(a),
		newTasksSearchCmd(a),
		newTasksStatsCmd(a),
	)
	return cmd
}

func newTasksListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks (admins see every task)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.client.ListTasks(cmd.Context())
			if err != nil {
				return wrapAPIError(err)
			}
			return a.printTasks(tasks)
		},
	}
}

func newTasksGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.client.GetTask(cmd.Context(), args[0])
			if err != nil {
				return wrapAPIError(err)
			}
			return a.printTasks([]models.Task{t})
		},
	}
}

// taskFlags - общие флаги create и update
type taskFlags struct {
	title, description, status, dueDate, priority, owner string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "task title")
	cmd.Flags().StringVar(&f.description, "description", "", "task description")
	cmd.Flags().StringVar(&f.status, "status", "", "todo, in-progress or completed")
	cmd.Flags().StringVar(&f.dueDate, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner user id (admin only for other users)")
}

func newTasksCreateCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.client.CreateTask(cmd.Context(), models.TaskInput{
				Title:       f.title,
				Description: f.description,
				Status:      models.Status(f.status),
				DueDate:     f.dueDate,
				Priority:    models.Priority(f.priority),
				UserID:      f.owner,
			})
			if err != nil {
				return wrapAPIError(err)
			}
			return a.printTasks([]models.Task{t})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// update читает текущую запись и отправляет её целиком с изменёнными полями
func newTasksUpdateCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.client.GetTask(cmd.Context(), args[0])
			if err != nil {
				return wrapAPIError(err)
			}
			changed := cmd.Flags().Changed
			if changed("title") {
				t.Title = f.title
			}
			if changed("description") {
				t.Description = f.description
			}
			if changed("status") {
				t.Status = models.Status(f.status)
			}
			if changed("due") {
				t.DueDate = f.dueDate
			}
			if changed("priority") {
				t.Priority = models.Priority(f.priority)
			}
			if changed("owner") {
				t.UserID = f.owner
			}

			updated, err := a.client.UpdateTask(cmd.Context(), t)
			if err != nil {
				return wrapAPIError(err)
			}
			return a.printTasks([]models.Task{updated})
		},
	}
	f.register(cmd)
	return cmd
}

func newTasksStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "status <id> <todo|in-progress|completed>",
		Short:     "Change only the status of a task",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(models.StatusTodo), string(models.StatusInProgress), string(models.StatusCompleted)},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.client.SetStatus(cmd.Context(), args[0], models.Status(args[1]))
			if err != nil {
				return wrapAPIError(err)
			}
			return a.printTasks([]models.Task{t})
		},
	}
}

func newTasksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteTask(cmd.Context(), args[0]); err != nil {
				return wrapAPIError(err)
			}
			fmt.Fprintf(a.out, "Deleted task %s\n", args[0])
			return nil
		},
	}
}

func newTasksSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find tasks by title substring",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.client.SearchTasks(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return wrapAPIError(err)
			}
			return a.printTasks(tasks)
		},
	}
}

func newTasksStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count visible tasks by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.client.Stats(cmd.Context())
			if err != nil {
				return wrapAPIError(err)
			}
			return a.printStats(st)
		},
	}
}
