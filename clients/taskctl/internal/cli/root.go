// Package cli - дерево команд taskctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/api"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/config"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/session"
	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/tokenstore"
)

var errNotLoggedIn = errors.New("not logged in, run `taskctl login`")

// app - зависимости, собранные в PersistentPreRunE
type app struct {
	out    io.Writer
	errOut io.Writer

	stateDir string
	output   string
	logLevel string

	cfg     *config.Config
	logger  *logrus.Logger
	store   *tokenstore.FileStore
	client  *api.Client
	session *session.Provider
}

// NewRootCommand строит дерево команд; out и errOut подменяются в тестах
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Command-line client for the task board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.stateDir, "state-dir", "", "directory for the session token and config.yaml (default ~/.config/taskboard)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", formatTable, "output format: table, json or yaml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTasksCmd(a),
		newWatchCmd(a),
	)
	return root
}

// Execute запускает taskctl с отменой по SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) init() error {
	switch a.output {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logrus.New()
	a.logger.SetOutput(a.errOut)
	a.logger.SetLevel(level)
	a.logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cfg, err := config.Load(a.stateDir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.store = tokenstore.NewFileStore(cfg.StateDir)
	a.client = api.NewClient(api.Config{APIURL: cfg.APIURL, AuthURL: cfg.AuthURL, Timeout: cfg.Timeout}, a.store, a.logger)
	a.session = session.NewProvider(a.client, a.store, a.logger)
	return nil
}

// requireUser восстанавливает сессию из хранилища токена
func (a *app) requireUser(ctx context.Context) (models.User, error) {
	u, ok, err := a.session.RestoreSession(ctx)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, errNotLoggedIn
	}
	return u, nil
}

// wrapAPIError добавляет подсказку для истёкшей сессии
func wrapAPIError(err error) error {
	if errors.Is(err, api.ErrNotAuthenticated) {
		return fmt.Errorf("%w (session expired, run `taskctl login`)", err)
	}
	return err
}
