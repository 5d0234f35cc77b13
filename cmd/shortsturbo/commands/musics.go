package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
	"github.com/GiladLeef/ShortsTurbo/internal/printer"
)

// MusicsListCommand lists the background music library.
type MusicsListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewMusicsListCommand returns the musics list command.
func NewMusicsListCommand(rootCmd *RootCommand, musicsCmd *kingpin.CmdClause) *MusicsListCommand {
	c := &MusicsListCommand{rootCmd: rootCmd}

	c.Cmd = musicsCmd.Command("list", "List the songs in the music library.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c MusicsListCommand) Name() string { return c.Cmd.FullCommand() }

func (c MusicsListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	lib, err := music.NewLibrary(music.LibraryConfig{
		Dir:    conventions.SongsDirPath(c.rootCmd.DataDir),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create music library: %w", err)
	}

	songs, err := lib.List()
	if err != nil {
		return fmt.Errorf("could not list songs: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintSongs(songs); err != nil {
		return fmt.Errorf("could not print songs: %w", err)
	}

	return nil
}

// MusicsAddCommand copies a song into the background music library.
type MusicsAddCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	file string
}

// NewMusicsAddCommand returns the musics add command.
func NewMusicsAddCommand(rootCmd *RootCommand, musicsCmd *kingpin.CmdClause) *MusicsAddCommand {
	c := &MusicsAddCommand{rootCmd: rootCmd}

	c.Cmd = musicsCmd.Command("add", "Add a song to the music library.")
	c.Cmd.Arg("file", "Audio file to add.").Required().StringVar(&c.file)

	return c
}

func (c MusicsAddCommand) Name() string { return c.Cmd.FullCommand() }

func (c MusicsAddCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	lib, err := music.NewLibrary(music.LibraryConfig{
		Dir:    conventions.SongsDirPath(c.rootCmd.DataDir),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create music library: %w", err)
	}

	f, err := os.Open(c.file)
	if err != nil {
		return fmt.Errorf("could not open song file: %w", err)
	}
	defer f.Close()

	song, err := lib.Save(filepath.Base(c.file), f)
	if err != nil {
		return fmt.Errorf("could not add song: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Added song: %s", song.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
