package music

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

var songExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".flac": {}, ".ogg": {}, ".m4a": {},
}

// Song is one background music file in the library.
type Song struct {
	Name string
	Path string
	Size int64
}

// LibraryConfig is the configuration for the music library.
type LibraryConfig struct {
	Dir    string
	Logger log.Logger
}

func (c *LibraryConfig) defaults() error {
	if c.Dir == "" {
		return fmt.Errorf("music directory is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "music.Library"})

	return nil
}

// Library manages the background music directory.
type Library struct {
	dir    string
	logger log.Logger
}

// NewLibrary creates a new music library over a directory.
func NewLibrary(cfg LibraryConfig) (*Library, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating music directory: %w", err)
	}

	return &Library{
		dir:    cfg.Dir,
		logger: cfg.Logger,
	}, nil
}

// List returns the songs in the library sorted by name.
func (l *Library) List() ([]Song, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading music directory: %w", err)
	}

	songs := []Song{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := songExtensions[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		songs = append(songs, Song{
			Name: e.Name(),
			Path: filepath.Join(l.dir, e.Name()),
			Size: info.Size(),
		})
	}

	sort.Slice(songs, func(i, j int) bool { return songs[i].Name < songs[j].Name })

	return songs, nil
}

// Save stores an uploaded song in the library. The name is reduced to its
// base so uploads cannot escape the music directory.
func (l *Library) Save(name string, r io.Reader) (*Song, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("song name is required: %w", model.ErrNotValid)
	}
	if _, ok := songExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
		return nil, fmt.Errorf("unsupported song format %q: %w", filepath.Ext(name), model.ErrNotValid)
	}

	tmpPath := filepath.Join(l.dir, "."+uuid.NewString()+".tmp")
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating song file: %w", err)
	}

	written, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("writing song data: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("closing song file: %w", err)
	}

	path := filepath.Join(l.dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("moving song into place: %w", err)
	}

	l.logger.Infof("Saved song %s (%d bytes)", name, written)

	return &Song{Name: name, Path: path, Size: written}, nil
}

// Pick resolves the music configuration to a song path. With no music mode
// it returns an empty path, with random mode an empty library is tolerated
// and just means no background music.
func (l *Library) Pick(cfg model.MusicConfig) (string, error) {
	switch cfg.Mode {
	case model.MusicModeNone, "":
		return "", nil

	case model.MusicModeFile:
		path := filepath.Join(l.dir, filepath.Base(cfg.File))
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("song %q not found: %w", cfg.File, model.ErrNotFound)
		}
		return path, nil

	case model.MusicModeRandom:
		songs, err := l.List()
		if err != nil {
			return "", err
		}
		if len(songs) == 0 {
			l.logger.Warningf("No songs in the library, rendering without background music")
			return "", nil
		}
		return songs[rand.Intn(len(songs))].Path, nil
	}

	return "", fmt.Errorf("unknown music mode %q: %w", cfg.Mode, model.ErrNotValid)
}
