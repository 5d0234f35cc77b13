package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/GiladLeef/ShortsTurbo/internal/app/list"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/printer"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/sqlite"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	page         int
	pageSize     int
	format       string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List generation tasks.")
	c.Cmd.Flag("status", "Filter by status (pending, running, succeeded, partially_failed, failed, cancelled).").StringVar(&c.statusFilter)
	c.Cmd.Flag("page", "Page number.").Default("1").IntVar(&c.page)
	c.Cmd.Flag("page-size", "Tasks per page.").Default("20").IntVar(&c.pageSize)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
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

	// Create list service.
	svc, err := list.NewService(list.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute list.
	page, err := svc.Run(ctx, list.Request{
		Status:   model.TaskStatus(strings.ToLower(c.statusFilter)),
		Page:     c.page,
		PageSize: c.pageSize,
	})
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintList(page.Tasks); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
