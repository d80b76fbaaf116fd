package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/realtime"
)

// watch печатает события канала и после каждого перечитывает список задач:
// локальный кэш не патчится, а инвалидируется
func newWatchCmd(a *app) *cobra.Command {
	var relist bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream task changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := a.requireUser(ctx)
			if err != nil {
				return err
			}

			n := realtime.New(realtime.Options{
				URL:    a.cfg.WSURL,
				Token:  a.store.Get,
				Logger: a.logger,
			})

			events := make(chan string, 16)
			emit := func(line string) {
				select {
				case events <- line:
				default:
					a.logger.Warn("watch: output backlog full, event skipped")
				}
			}
			defer n.OnTaskCreated(func(t models.Task) { emit(fmt.Sprintf("created  %s  %q (%s)", t.ID, t.Title, t.Status)) })()
			defer n.OnTaskUpdated(func(t models.Task) { emit(fmt.Sprintf("updated  %s  %q (%s)", t.ID, t.Title, t.Status)) })()
			defer n.OnTaskDeleted(func(id string) { emit(fmt.Sprintf("deleted  %s", id)) })()

			n.Connect()
			defer n.Disconnect()
			fmt.Fprintf(a.out, "Watching tasks as %s (%s). Press Ctrl+C to stop.\n", u.Name, u.Role)

			for {
				select {
				case <-ctx.Done():
					return nil
				case line := <-events:
					fmt.Fprintln(a.out, line)
					if !relist {
						continue
					}
					tasks, err := a.client.ListTasks(ctx)
					if err != nil {
						return wrapAPIError(err)
					}
					fmt.Fprintf(a.out, "  %d visible tasks\n", len(tasks))
				}
			}
		},
	}
	cmd.Flags().BoolVar(&relist, "relist", true, "re-fetch the task list after every event")
	return cmd
}
