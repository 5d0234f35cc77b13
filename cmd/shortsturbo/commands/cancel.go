package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/GiladLeef/ShortsTurbo/internal/app/cancel"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/printer"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/sqlite"
)

type CancelCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewCancelCommand returns the cancel command.
func NewCancelCommand(rootCmd *RootCommand, app *kingpin.Application) *CancelCommand {
	c := &CancelCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("cancel", "Cancel a pending or running task.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)

	return c
}

func (c CancelCommand) Name() string { return c.Cmd.FullCommand() }

func (c CancelCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(c.rootCmd.DataDir),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Create cancel service. Running tasks stay flagged in the registry until
	// the serving process observes the request at its next stage boundary.
	svc, err := cancel.NewService(cancel.ServiceConfig{
		Repository: repo,
		Queue:      localQueue{},
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute cancel.
	task, err := svc.Run(ctx, cancel.Request{
		TaskID: c.taskID,
	})
	if err != nil {
		return fmt.Errorf("could not cancel task: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	msg := fmt.Sprintf("Cancelled task: %s", task.ID)
	if task.Status == model.TaskStatusRunning {
		msg = fmt.Sprintf("Cancellation requested for running task: %s", task.ID)
	}
	if err := p.PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
