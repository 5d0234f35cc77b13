package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	composefake "github.com/GiladLeef/ShortsTurbo/internal/compose/fake"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/memory"
)

func TestNewGeneration(t *testing.T) {
	tests := map[string]struct {
		settings func(dataDir string) generationSettings
	}{
		"Fake providers should wire a complete pipeline without external tools": {
			settings: func(dataDir string) generationSettings {
				return generationSettings{DataDir: dataDir, FakeProviders: true}
			},
		},
		"Real providers without stock keys should still wire a complete pipeline": {
			settings: func(dataDir string) generationSettings {
				return generationSettings{DataDir: dataDir}
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(t, err)

			deps, err := newGeneration(repo, tc.settings(t.TempDir()), log.Noop)
			require.NoError(t, err)

			assert.NotNil(t, deps.Coordinator)
			assert.NotNil(t, deps.Compositor)
			assert.NotNil(t, deps.Music)
		})
	}
}

func TestNewFetchers(t *testing.T) {
	tests := map[string]struct {
		settings func(dataDir string) generationSettings
		expNames []string
	}{
		"Fake providers should answer to every source name": {
			settings: func(dataDir string) generationSettings {
				return generationSettings{DataDir: dataDir, FakeProviders: true}
			},
			expNames: []string{"pexels", "pixabay", "local"},
		},
		"Without API keys only the local source should be configured": {
			settings: func(dataDir string) generationSettings {
				return generationSettings{DataDir: dataDir}
			},
			expNames: []string{"local"},
		},
		"A configured key should enable its stock source": {
			settings: func(dataDir string) generationSettings {
				return generationSettings{DataDir: dataDir, PexelsAPIKey: "test-key"}
			},
			expNames: []string{"pexels", "local"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			comp, err := composefake.NewCompositor(composefake.CompositorConfig{})
			require.NoError(t, err)

			fetchers, err := newFetchers(tc.settings(t.TempDir()), comp, log.Noop)
			require.NoError(t, err)

			names := make([]string, 0, len(fetchers))
			for _, f := range fetchers {
				names = append(names, f.Descriptor().Name)
			}
			assert.Equal(t, tc.expNames, names)
		})
	}
}
