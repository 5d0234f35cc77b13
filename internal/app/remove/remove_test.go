package remove_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GiladLeef/ShortsTurbo/internal/app/remove"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/scheduler/schedulermock"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/storagemock"
)

// seedArtifacts creates a task directory with a leftover file inside.
func seedArtifacts(t *testing.T, dataDir, taskID string) string {
	t.Helper()
	dir := conventions.TaskDir(dataDir, taskID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, conventions.FinalVideoFile(1)), []byte("video"), 0o644))
	return dir
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		cfg    func(t *testing.T) remove.ServiceConfig
		expErr bool
		errMsg string
	}{
		"Valid config": {
			cfg: func(t *testing.T) remove.ServiceConfig {
				return remove.ServiceConfig{
					Repository: storagemock.NewMockRepository(t),
					Queue:      schedulermock.NewMockQueue(t),
					DataDir:    t.TempDir(),
				}
			},
		},

		"Missing repository returns error": {
			cfg: func(t *testing.T) remove.ServiceConfig {
				return remove.ServiceConfig{Queue: schedulermock.NewMockQueue(t), DataDir: t.TempDir()}
			},
			expErr: true,
			errMsg: "repository is required",
		},

		"Missing queue returns error": {
			cfg: func(t *testing.T) remove.ServiceConfig {
				return remove.ServiceConfig{Repository: storagemock.NewMockRepository(t), DataDir: t.TempDir()}
			},
			expErr: true,
			errMsg: "queue is required",
		},

		"Missing data directory returns error": {
			cfg: func(t *testing.T) remove.ServiceConfig {
				return remove.ServiceConfig{
					Repository: storagemock.NewMockRepository(t),
					Queue:      schedulermock.NewMockQueue(t),
				}
			},
			expErr: true,
			errMsg: "data directory is required",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := remove.NewService(test.cfg(t))

			if test.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.errMsg)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		request    remove.Request
		setupMocks func(repo *storagemock.MockRepository, queue *schedulermock.MockQueue)
		expErr     bool
		expErrIs   error
		expRemoved bool
	}{
		"A finished task should be removed together with its artifacts": {
			request: remove.Request{TaskID: "task-1"},
			setupMocks: func(repo *storagemock.MockRepository, queue *schedulermock.MockQueue) {
				repo.On("GetTask", mock.Anything, "task-1").
					Return(&model.Task{ID: "task-1", Status: model.TaskStatusSucceeded}, nil)
				repo.On("DeleteTask", mock.Anything, "task-1").Return(nil)
			},
			expRemoved: true,
		},

		"A running task without force should be refused": {
			request: remove.Request{TaskID: "task-1"},
			setupMocks: func(repo *storagemock.MockRepository, queue *schedulermock.MockQueue) {
				repo.On("GetTask", mock.Anything, "task-1").
					Return(&model.Task{ID: "task-1", Status: model.TaskStatusRunning}, nil)
			},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"A running task with force should be flagged, interrupted and removed": {
			request: remove.Request{TaskID: "task-1", Force: true},
			setupMocks: func(repo *storagemock.MockRepository, queue *schedulermock.MockQueue) {
				repo.On("GetTask", mock.Anything, "task-1").
					Return(&model.Task{ID: "task-1", Status: model.TaskStatusRunning}, nil)
				repo.On("UpdateTask", mock.Anything, "task-1", mock.Anything).
					Return(&model.Task{ID: "task-1", Status: model.TaskStatusRunning, CancelRequested: true}, nil)
				queue.On("Cancel", "task-1").Return(true)
				repo.On("DeleteTask", mock.Anything, "task-1").Return(nil)
			},
			expRemoved: true,
		},

		"A missing task should fail with not found": {
			request: remove.Request{TaskID: "task-unknown"},
			setupMocks: func(repo *storagemock.MockRepository, queue *schedulermock.MockQueue) {
				repo.On("GetTask", mock.Anything, "task-unknown").Return(nil, model.ErrNotFound)
			},
			expErr:   true,
			expErrIs: model.ErrNotFound,
		},

		"An empty task id should be rejected": {
			request:    remove.Request{},
			setupMocks: func(repo *storagemock.MockRepository, queue *schedulermock.MockQueue) {},
			expErr:     true,
			expErrIs:   model.ErrNotValid,
		},

		"A registry deletion failure should be reported": {
			request: remove.Request{TaskID: "task-1"},
			setupMocks: func(repo *storagemock.MockRepository, queue *schedulermock.MockQueue) {
				repo.On("GetTask", mock.Anything, "task-1").
					Return(&model.Task{ID: "task-1", Status: model.TaskStatusFailed}, nil)
				repo.On("DeleteTask", mock.Anything, "task-1").Return(model.ErrNotFound)
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := storagemock.NewMockRepository(t)
			queue := schedulermock.NewMockQueue(t)
			test.setupMocks(repo, queue)

			dataDir := t.TempDir()
			dir := seedArtifacts(t, dataDir, "task-1")

			svc, err := remove.NewService(remove.ServiceConfig{Repository: repo, Queue: queue, DataDir: dataDir})
			require.NoError(t, err)

			task, err := svc.Run(context.Background(), test.request)

			if test.expErr {
				require.Error(t, err)
				if test.expErrIs != nil {
					assert.ErrorIs(t, err, test.expErrIs)
				}
				assert.Nil(t, task)
			} else {
				require.NoError(t, err)
				require.NotNil(t, task)
			}

			if test.expRemoved {
				assert.NoDirExists(t, dir)
			} else {
				assert.DirExists(t, dir)
			}
		})
	}
}
