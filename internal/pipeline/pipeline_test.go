package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GiladLeef/ShortsTurbo/internal/compose"
	"github.com/GiladLeef/ShortsTurbo/internal/compose/composemock"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/pipeline"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/keywords"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/providermock"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/memory"
)

const testTaskID = "task-under-test"

// fastRetry keeps retried cases quick.
var fastRetry = provider.RetryPolicy{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

type stubDownloader struct {
	fail  map[string]error
	calls []string
}

func (d *stubDownloader) Download(ctx context.Context, url, savePath string) error {
	if err := d.fail[url]; err != nil {
		return err
	}
	d.calls = append(d.calls, url)
	return os.WriteFile(savePath, []byte("clip-data"), 0o644)
}

type stubPicker struct {
	path string
	err  error
}

func (p *stubPicker) Pick(cfg model.MusicConfig) (string, error) { return p.path, p.err }

type pipelineMocks struct {
	repo       *memory.Repository
	speech     *providermock.MockSpeechSynthesizer
	keywords   *providermock.MockKeywordExtractor
	pexels     *providermock.MockFootageFetcher
	local      *providermock.MockFootageFetcher
	comp       *composemock.MockCompositor
	downloader *stubDownloader
	picker     *stubPicker
	dataDir    string

	renderReqs []compose.Request
}

func newPipelineMocks(t *testing.T) *pipelineMocks {
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	m := &pipelineMocks{
		repo:       repo,
		speech:     providermock.NewMockSpeechSynthesizer(t),
		keywords:   providermock.NewMockKeywordExtractor(t),
		pexels:     providermock.NewMockFootageFetcher(t),
		local:      providermock.NewMockFootageFetcher(t),
		comp:       composemock.NewMockCompositor(t),
		downloader: &stubDownloader{fail: map[string]error{}},
		picker:     &stubPicker{},
		dataDir:    t.TempDir(),
	}

	m.speech.On("Descriptor").Return(provider.Descriptor{
		Name:         "fake-tts",
		Capabilities: []provider.Capability{provider.CapabilitySpeech},
		Retry:        fastRetry,
	}).Maybe()
	m.pexels.On("Descriptor").Return(provider.Descriptor{
		Name:         "pexels",
		Capabilities: []provider.Capability{provider.CapabilityFootage},
		Retry:        fastRetry,
	}).Maybe()
	m.local.On("Descriptor").Return(provider.Descriptor{
		Name:         "local",
		Capabilities: []provider.Capability{provider.CapabilityFootage},
		Retry:        fastRetry,
	}).Maybe()

	return m
}

func (m *pipelineMocks) coordinator(t *testing.T, timeout time.Duration) *pipeline.Coordinator {
	coord, err := pipeline.NewCoordinator(pipeline.CoordinatorConfig{
		Repository:    m.repo,
		Speech:        m.speech,
		Keywords:      m.keywords,
		Footage:       []provider.FootageFetcher{m.pexels, m.local},
		Compositor:    m.comp,
		Music:         m.picker,
		Downloader:    m.downloader,
		DataDir:       m.dataDir,
		TaskTimeout:   timeout,
		DownloadRetry: fastRetry,
	})
	require.NoError(t, err)
	return coord
}

// expectRender registers n successful render calls capturing their requests.
func (m *pipelineMocks) expectRender() {
	m.comp.On("Render", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		m.renderReqs = append(m.renderReqs, args.Get(1).(compose.Request))
	}).Return("", nil)
}

// synthOK makes Synthesize write the audio file and report the duration.
func (m *pipelineMocks) synthOK(d time.Duration) {
	m.speech.On("Synthesize", mock.Anything, mock.Anything).Return(func(ctx context.Context, req provider.SpeechRequest) (*provider.SpeechResult, error) {
		if err := os.WriteFile(req.OutputPath, []byte("audio"), 0o644); err != nil {
			return nil, err
		}
		return &provider.SpeechResult{AudioPath: req.OutputPath, Duration: d}, nil
	})
}

func remoteClip(source, url string, d time.Duration) provider.Clip {
	return provider.Clip{Provider: source, URL: url, Duration: d, Width: 1080, Height: 1920}
}

func localClip(path string, d time.Duration) provider.Clip {
	return provider.Clip{Provider: "local", Path: path, Duration: d, Width: 1080, Height: 1920}
}

func testTask(mut func(*model.Task)) model.Task {
	task := model.Task{
		ID:     testTaskID,
		Script: "Cats are curious animals. They sleep a lot during the day.",
		Config: model.GenerationConfig{
			Aspect:       model.AspectPortrait,
			Voice:        "en-US-JennyNeural",
			VoiceRate:    1.0,
			VoiceVolume:  1.0,
			Subtitle:     model.SubtitleConfig{Enabled: true, FontSize: 60, Position: model.SubtitlePositionBottom},
			Sources:      []model.FootageSource{model.FootageSourcePexels},
			SearchTerms:  []string{"cats"},
			ClipDuration: 4 * time.Second,
			ConcatMode:   model.ConcatModeSequential,
			Transition:   model.TransitionNone,
			Music:        model.MusicConfig{Mode: model.MusicModeNone},
			VideoCount:   1,
		},
		Status:    model.TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if mut != nil {
		mut(&task)
	}
	return task
}

func artifactStages(task model.Task) []model.Stage {
	stages := []model.Stage{}
	for _, a := range task.Artifacts {
		stages = append(stages, a.Stage)
	}
	return stages
}

func TestNewCoordinator(t *testing.T) {
	valid := func(m *pipelineMocks) pipeline.CoordinatorConfig {
		return pipeline.CoordinatorConfig{
			Repository: m.repo,
			Speech:     m.speech,
			Keywords:   m.keywords,
			Footage:    []provider.FootageFetcher{m.pexels},
			Compositor: m.comp,
			Music:      m.picker,
			Downloader: m.downloader,
			DataDir:    m.dataDir,
		}
	}

	tests := map[string]struct {
		config func(m *pipelineMocks) pipeline.CoordinatorConfig
		expErr string
	}{
		"A complete config should be accepted.": {
			config: valid,
		},

		"A missing repository should be rejected.": {
			config: func(m *pipelineMocks) pipeline.CoordinatorConfig {
				c := valid(m)
				c.Repository = nil
				return c
			},
			expErr: "repository is required",
		},

		"A missing speech synthesizer should be rejected.": {
			config: func(m *pipelineMocks) pipeline.CoordinatorConfig {
				c := valid(m)
				c.Speech = nil
				return c
			},
			expErr: "speech synthesizer is required",
		},

		"Missing footage fetchers should be rejected.": {
			config: func(m *pipelineMocks) pipeline.CoordinatorConfig {
				c := valid(m)
				c.Footage = nil
				return c
			},
			expErr: "footage fetcher is required",
		},

		"A missing compositor should be rejected.": {
			config: func(m *pipelineMocks) pipeline.CoordinatorConfig {
				c := valid(m)
				c.Compositor = nil
				return c
			},
			expErr: "compositor is required",
		},

		"A missing data directory should be rejected.": {
			config: func(m *pipelineMocks) pipeline.CoordinatorConfig {
				c := valid(m)
				c.DataDir = ""
				return c
			},
			expErr: "data directory is required",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := newPipelineMocks(t)
			coord, err := pipeline.NewCoordinator(test.config(m))

			if test.expErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.expErr)
				assert.Nil(t, coord)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, coord)
			}
		})
	}
}

func TestCoordinatorExecute(t *testing.T) {
	tests := map[string]struct {
		task   func() model.Task
		mock   func(t *testing.T, m *pipelineMocks)
		expect func(t *testing.T, m *pipelineMocks, task model.Task)
	}{
		"A full run should commit every stage artifact and succeed.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				assert.Equal(t, 1.0, task.Progress)
				assert.Equal(t, []model.Stage{model.StageSpeech, model.StageSubtitle, model.StageMaterial, model.StageRender}, artifactStages(task))
				assert.Empty(t, task.Warnings)
				assert.Nil(t, task.Failure)

				finals := task.FinalVideos()
				require.Len(t, finals, 1)
				assert.Equal(t, conventions.TaskFilePath(m.dataDir, task.ID, "final-1.mp4"), finals[0])

				// Script snapshot, subtitles and downloaded clips are on disk.
				assert.FileExists(t, conventions.TaskFilePath(m.dataDir, task.ID, conventions.ScriptFile))
				assert.FileExists(t, conventions.TaskFilePath(m.dataDir, task.ID, conventions.SubtitleFile))
				assert.Len(t, m.downloader.calls, 3)
				assert.FileExists(t, conventions.TaskFilePath(m.dataDir, task.ID, conventions.ClipFile(0)))

				require.Len(t, m.renderReqs, 1)
				req := m.renderReqs[0]
				assert.Len(t, req.Clips, 3)
				assert.Equal(t, 1080, req.Width)
				assert.Equal(t, 1920, req.Height)
				assert.Equal(t, 1.0, req.Speech.Gain)
				assert.Nil(t, req.Music)
				require.NotNil(t, req.Subtitle)
				assert.Equal(t, conventions.TaskFilePath(m.dataDir, task.ID, conventions.SubtitleFile), req.Subtitle.Path)
			},
		},

		"Script derived keywords should drive the search when no explicit terms are set.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.SearchTerms = nil })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.keywords.On("Extract", mock.Anything, mock.Anything, 3).Return([]string{"cats", "animals"}, nil)
				m.pexels.On("Fetch", mock.Anything, mock.MatchedBy(func(req provider.FootageRequest) bool {
					return reflect.DeepEqual(req.Terms, []string{"cats", "animals"})
				})).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
			},
		},

		"Default terms should be used when extraction yields nothing.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.SearchTerms = nil })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.keywords.On("Extract", mock.Anything, mock.Anything, 3).Return([]string{}, nil)
				m.pexels.On("Fetch", mock.Anything, mock.MatchedBy(func(req provider.FootageRequest) bool {
					return reflect.DeepEqual(req.Terms, keywords.DefaultTerms())
				})).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
			},
		},

		"A permanent synthesis failure should fail the task without retries.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.speech.On("Synthesize", mock.Anything, mock.Anything).
					Return(nil, provider.NewPermanent("fake-tts", errors.New("voice does not exist")))
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusFailed, task.Status)
				require.NotNil(t, task.Failure)
				assert.Equal(t, model.StageSpeech, task.Failure.Stage)
				assert.Equal(t, model.FailureReasonSpeechSynthesisFailed, task.Failure.Reason)
				assert.Empty(t, task.Artifacts)
				assert.InDelta(t, 0.05, task.Progress, 0.001)
				m.speech.AssertNumberOfCalls(t, "Synthesize", 1)
				m.comp.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
			},
		},

		"Transient synthesis failures should be retried until success.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.StopAfter = model.StageSpeech })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.speech.On("Synthesize", mock.Anything, mock.Anything).
					Return(nil, provider.NewTransient("fake-tts", errors.New("rate limited"))).Twice()
				m.synthOK(10 * time.Second)
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				m.speech.AssertNumberOfCalls(t, "Synthesize", 3)
			},
		},

		"Exhausted synthesis retries should fail the task.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.speech.On("Synthesize", mock.Anything, mock.Anything).
					Return(nil, provider.NewTransient("fake-tts", errors.New("still rate limited")))
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusFailed, task.Status)
				require.NotNil(t, task.Failure)
				assert.Equal(t, model.FailureReasonSpeechSynthesisFailed, task.Failure.Reason)
				// First attempt plus MaxRetries.
				m.speech.AssertNumberOfCalls(t, "Synthesize", 3)
			},
		},

		"A missing provider duration should be probed from the audio file.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.StopAfter = model.StageSpeech })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.speech.On("Synthesize", mock.Anything, mock.Anything).Return(func(ctx context.Context, req provider.SpeechRequest) (*provider.SpeechResult, error) {
					return &provider.SpeechResult{AudioPath: req.OutputPath}, nil
				})
				m.comp.On("Probe", mock.Anything, mock.Anything).Return(&compose.MediaInfo{Duration: 12 * time.Second, HasAudio: true}, nil)
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				require.Len(t, task.Artifacts, 1)
				assert.Equal(t, 12*time.Second, task.Artifacts[0].Duration)
			},
		},

		"Provider timing marks should drive the subtitles when present.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.StopAfter = model.StageSubtitle })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				marks := []model.TimingMark{
					{Start: 0, End: 4 * time.Second, Text: "Cats are curious animals."},
					{Start: 4 * time.Second, End: 10 * time.Second, Text: "They sleep a lot during the day."},
				}
				m.speech.On("Synthesize", mock.Anything, mock.Anything).Return(func(ctx context.Context, req provider.SpeechRequest) (*provider.SpeechResult, error) {
					return &provider.SpeechResult{AudioPath: req.OutputPath, Duration: 10 * time.Second, Marks: marks}, nil
				})
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				require.Equal(t, []model.Stage{model.StageSpeech, model.StageSubtitle}, artifactStages(task))

				sub := task.Artifact(model.StageSubtitle)
				require.Len(t, sub.Marks, 2)
				assert.Equal(t, "Cats are curious animals.", sub.Marks[0].Text)
				assert.Equal(t, "fake-tts", sub.Provider)
			},
		},

		"No footage from any source should fail the task as no material available.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{}, nil)
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusFailed, task.Status)
				require.NotNil(t, task.Failure)
				assert.Equal(t, model.StageMaterial, task.Failure.Stage)
				assert.Equal(t, model.FailureReasonNoMaterialAvailable, task.Failure.Reason)
				assert.Contains(t, task.Failure.Message, "no footage found")
				m.comp.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
			},
		},

		"A failing source should only degrade the task when another one provides clips.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) {
					task.Config.Sources = []model.FootageSource{model.FootageSourcePexels, model.FootageSourceLocal}
				})
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).
					Return(nil, provider.NewPermanent("pexels", errors.New("bad api key")))
				m.local.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					localClip("/materials/a.mp4", 15*time.Second),
					localClip("/materials/b.mp4", 15*time.Second),
					localClip("/materials/c.mp4", 15*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				require.Len(t, task.Warnings, 1)
				assert.Contains(t, task.Warnings[0], `footage source "pexels" failed`)
				assert.Equal(t, "local", task.Artifact(model.StageMaterial).Provider)
				assert.Empty(t, m.downloader.calls)
			},
		},

		"Scarce footage should be reused to cover the narration with a warning.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 3*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 3*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				require.Len(t, task.Warnings, 1)
				assert.Contains(t, task.Warnings[0], "clips are reused")

				// The rendered sequence covers the 10s narration with 3s clips.
				require.Len(t, m.renderReqs, 1)
				var covered time.Duration
				for _, clip := range m.renderReqs[0].Clips {
					covered += clip.Length
				}
				assert.GreaterOrEqual(t, covered, 10*time.Second)
				assert.Greater(t, len(m.renderReqs[0].Clips), 2)
			},
		},

		"Failed clip downloads should fall back to the remaining footage.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.downloader.fail["https://cdn.example.com/two.mp4"] = provider.NewPermanent("download", errors.New("gone"))
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 4*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 4*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 4*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				assert.Len(t, m.downloader.calls, 2)

				// Remaining 8s of footage forces reuse to reach 10s.
				require.Len(t, task.Warnings, 2)
				assert.Contains(t, task.Warnings[0], "downloading clip")
				assert.Contains(t, task.Warnings[1], "clips are reused")
			},
		},

		"A render failure on the only output should fail the task.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.comp.On("Render", mock.Anything, mock.Anything).Return("", errors.New("ffmpeg exploded"))
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusFailed, task.Status)
				require.NotNil(t, task.Failure)
				assert.Equal(t, model.StageRender, task.Failure.Stage)
				assert.Equal(t, model.FailureReasonRenderFailed, task.Failure.Reason)
				assert.Empty(t, task.FinalVideos())
				assert.Equal(t, []model.Stage{model.StageSpeech, model.StageSubtitle, model.StageMaterial}, artifactStages(task))
			},
		},

		"A render failure on one output should partially fail the task when others succeed.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.VideoCount = 2 })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.comp.On("Render", mock.Anything, mock.Anything).Return("", errors.New("no space left")).Once()
				m.comp.On("Render", mock.Anything, mock.Anything).Return("", nil).Once()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusPartiallyFailed, task.Status)
				assert.Nil(t, task.Failure)
				assert.Equal(t, 1.0, task.Progress)

				finals := task.FinalVideos()
				require.Len(t, finals, 1)
				assert.Equal(t, conventions.TaskFilePath(m.dataDir, task.ID, "final-2.mp4"), finals[0])

				require.Len(t, task.Warnings, 1)
				assert.Contains(t, task.Warnings[0], "rendering output 1 failed")
			},
		},

		"Random concat mode should render a permutation of the selected clips.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.ConcatMode = model.ConcatModeRandom })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				require.Len(t, m.renderReqs, 1)

				got := map[string]int{}
				for _, clip := range m.renderReqs[0].Clips {
					got[filepath.Base(clip.Path)]++
				}
				assert.Equal(t, map[string]int{"clip-0.mp4": 1, "clip-1.mp4": 1, "clip-2.mp4": 1}, got)
			},
		},

		"Stopping after the speech stage should succeed with the speech artifact only.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Config.StopAfter = model.StageSpeech })
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.synthOK(10 * time.Second)
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				assert.Equal(t, 1.0, task.Progress)
				assert.Equal(t, []model.Stage{model.StageSpeech}, artifactStages(task))
				m.pexels.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
				m.comp.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
			},
		},

		"Background music picking failures should degrade the render instead of failing it.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) {
					task.Config.Music = model.MusicConfig{Mode: model.MusicModeFile, File: "gone.mp3", Volume: 0.2}
				})
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.picker.err = fmt.Errorf("song %q not found: %w", "gone.mp3", model.ErrNotFound)
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				require.Len(t, task.Warnings, 1)
				assert.Contains(t, task.Warnings[0], "background music unavailable")

				require.Len(t, m.renderReqs, 1)
				assert.Nil(t, m.renderReqs[0].Music)
			},
		},

		"A picked song should reach the render at the configured gain.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) {
					task.Config.Music = model.MusicConfig{Mode: model.MusicModeRandom, Volume: 0.2}
				})
			},
			mock: func(t *testing.T, m *pipelineMocks) {
				m.picker.path = "/songs/chill.mp3"
				m.synthOK(10 * time.Second)
				m.pexels.On("Fetch", mock.Anything, mock.Anything).Return([]provider.Clip{
					remoteClip("pexels", "https://cdn.example.com/one.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/two.mp4", 15*time.Second),
					remoteClip("pexels", "https://cdn.example.com/three.mp4", 15*time.Second),
				}, nil)
				m.expectRender()
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusSucceeded, task.Status)
				require.Len(t, m.renderReqs, 1)
				require.NotNil(t, m.renderReqs[0].Music)
				assert.Equal(t, "/songs/chill.mp3", m.renderReqs[0].Music.Path)
				assert.Equal(t, 0.2, m.renderReqs[0].Music.Gain)
			},
		},

		"A task already terminal should be skipped untouched.": {
			task: func() model.Task {
				return testTask(func(task *model.Task) { task.Status = model.TaskStatusCancelled })
			},
			mock: func(t *testing.T, m *pipelineMocks) {},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusCancelled, task.Status)
				assert.Empty(t, task.Artifacts)
				m.speech.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything)
			},
		},

		"A cancellation request during a stage should cancel the task and discard its artifact.": {
			task: func() model.Task { return testTask(nil) },
			mock: func(t *testing.T, m *pipelineMocks) {
				m.speech.On("Synthesize", mock.Anything, mock.Anything).Return(func(ctx context.Context, req provider.SpeechRequest) (*provider.SpeechResult, error) {
					_, err := m.repo.UpdateTask(context.Background(), testTaskID, func(task *model.Task) error {
						task.CancelRequested = true
						return nil
					})
					require.NoError(t, err)
					return &provider.SpeechResult{AudioPath: req.OutputPath, Duration: 10 * time.Second}, nil
				})
			},
			expect: func(t *testing.T, m *pipelineMocks, task model.Task) {
				assert.Equal(t, model.TaskStatusCancelled, task.Status)
				assert.Nil(t, task.Failure)
				assert.Empty(t, task.Artifacts)
				m.pexels.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
				m.comp.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := newPipelineMocks(t)
			task := test.task()
			require.NoError(t, m.repo.CreateTask(context.Background(), task))
			test.mock(t, m)

			coord := m.coordinator(t, 0)
			err := coord.Execute(context.Background(), task.ID)
			require.NoError(t, err)

			stored, err := m.repo.GetTask(context.Background(), task.ID)
			require.NoError(t, err)
			test.expect(t, m, *stored)
		})
	}
}

func TestCoordinatorExecuteTaskDeadline(t *testing.T) {
	m := newPipelineMocks(t)
	require.NoError(t, m.repo.CreateTask(context.Background(), testTask(nil)))

	// The synthesizer honors the context and gives up when the task deadline
	// fires.
	m.speech.On("Synthesize", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, provider.NewTransient("fake-tts", errors.New("interrupted")))

	coord := m.coordinator(t, 30*time.Millisecond)
	err := coord.Execute(context.Background(), testTaskID)
	require.NoError(t, err)

	task, err := m.repo.GetTask(context.Background(), testTaskID)
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatusFailed, task.Status)
	require.NotNil(t, task.Failure)
	assert.Equal(t, model.StageSpeech, task.Failure.Stage)
	assert.Equal(t, model.FailureReasonTimeout, task.Failure.Reason)
	assert.Contains(t, task.Failure.Message, "deadline exceeded")
}

func TestCoordinatorExecuteContextCancelled(t *testing.T) {
	m := newPipelineMocks(t)
	require.NoError(t, m.repo.CreateTask(context.Background(), testTask(nil)))

	ctx, cancel := context.WithCancel(context.Background())
	m.speech.On("Synthesize", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		cancel()
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, provider.NewTransient("fake-tts", errors.New("interrupted")))

	coord := m.coordinator(t, 0)
	err := coord.Execute(ctx, testTaskID)
	require.NoError(t, err)

	task, err := m.repo.GetTask(context.Background(), testTaskID)
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatusCancelled, task.Status)
	assert.Nil(t, task.Failure)
	assert.Empty(t, task.Artifacts)
}
