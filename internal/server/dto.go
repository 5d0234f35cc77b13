package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

// response is the envelope every endpoint answers with.
type response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response{Status: http.StatusOK, Message: "success", Data: data})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Errorf("request failed: %s", err)
	}
	c.JSON(status, response{Status: status, Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotValid):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyTerminal), errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type subtitleRequest struct {
	// Enabled defaults to true when the subtitle block or the field is absent.
	Enabled     *bool   `json:"enabled"`
	FontName    string  `json:"font_name"`
	FontSize    int     `json:"font_size"`
	Position    string  `json:"position"`
	TextColor   string  `json:"text_color"`
	StrokeColor string  `json:"stroke_color"`
	StrokeWidth float64 `json:"stroke_width"`
}

type musicRequest struct {
	Mode   string  `json:"mode"`
	File   string  `json:"file"`
	Volume float64 `json:"volume"`
}

type submitRequest struct {
	Script       string           `json:"script"`
	Aspect       string           `json:"aspect"`
	Voice        string           `json:"voice"`
	VoiceRate    float64          `json:"voice_rate"`
	VoiceVolume  float64          `json:"voice_volume"`
	Sources      []string         `json:"sources"`
	SearchTerms  []string         `json:"search_terms"`
	ClipDuration float64          `json:"clip_duration"`
	ConcatMode   string           `json:"concat_mode"`
	Transition   string           `json:"transition"`
	Subtitle     *subtitleRequest `json:"subtitle"`
	Music        *musicRequest    `json:"music"`
	VideoCount   int              `json:"video_count"`
}

// toConfig maps the request body onto a generation config. Unknown enum
// values pass through untouched, validation rejects them downstream.
func (r submitRequest) toConfig() model.GenerationConfig {
	cfg := model.GenerationConfig{
		Aspect:       model.AspectRatio(r.Aspect),
		Voice:        r.Voice,
		VoiceRate:    r.VoiceRate,
		VoiceVolume:  r.VoiceVolume,
		SearchTerms:  r.SearchTerms,
		ClipDuration: time.Duration(r.ClipDuration * float64(time.Second)),
		ConcatMode:   model.ConcatMode(r.ConcatMode),
		Transition:   model.TransitionMode(r.Transition),
		VideoCount:   r.VideoCount,
	}

	for _, src := range r.Sources {
		cfg.Sources = append(cfg.Sources, model.FootageSource(src))
	}

	// Subtitles are on unless the caller switches them off.
	cfg.Subtitle.Enabled = true
	if r.Subtitle != nil {
		if r.Subtitle.Enabled != nil {
			cfg.Subtitle.Enabled = *r.Subtitle.Enabled
		}
		cfg.Subtitle.FontName = r.Subtitle.FontName
		cfg.Subtitle.FontSize = r.Subtitle.FontSize
		cfg.Subtitle.Position = model.SubtitlePosition(r.Subtitle.Position)
		cfg.Subtitle.TextColor = r.Subtitle.TextColor
		cfg.Subtitle.StrokeColor = r.Subtitle.StrokeColor
		cfg.Subtitle.StrokeWidth = r.Subtitle.StrokeWidth
	}

	if r.Music != nil {
		cfg.Music = model.MusicConfig{
			Mode:   model.MusicMode(r.Music.Mode),
			File:   r.Music.File,
			Volume: r.Music.Volume,
		}
	}

	return cfg
}

type failureResponse struct {
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type artifactResponse struct {
	Stage     string    `json:"stage"`
	Files     []string  `json:"files"`
	Duration  float64   `json:"duration_seconds,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type taskResponse struct {
	TaskID          string             `json:"task_id"`
	Script          string             `json:"script"`
	Status          string             `json:"status"`
	Stage           string             `json:"stage,omitempty"`
	Progress        float64            `json:"progress"`
	CancelRequested bool               `json:"cancel_requested,omitempty"`
	Artifacts       []artifactResponse `json:"artifacts,omitempty"`
	Videos          []string           `json:"videos,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
	Failure         *failureResponse   `json:"failure,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type taskSummaryResponse struct {
	TaskID    string           `json:"task_id"`
	Status    string           `json:"status"`
	Stage     string           `json:"stage,omitempty"`
	Progress  float64          `json:"progress"`
	Warnings  int              `json:"warnings,omitempty"`
	Failure   *failureResponse `json:"failure,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type taskPageResponse struct {
	Tasks    []taskSummaryResponse `json:"tasks"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type songResponse struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	File     string  `json:"file"`
	Duration float64 `json:"duration_seconds,omitempty"`
}

// relPath rewrites an absolute artifact path to a data-root-relative one so
// responses never leak server filesystem layout.
func (s *Server) relPath(path string) string {
	rel, err := filepath.Rel(s.dataDir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func (s *Server) relPaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, s.relPath(p))
	}
	return out
}

func mapFailure(f *model.TaskFailure) *failureResponse {
	if f == nil {
		return nil
	}
	return &failureResponse{
		Stage:   string(f.Stage),
		Reason:  string(f.Reason),
		Message: f.Message,
	}
}

func (s *Server) mapTask(t model.Task) taskResponse {
	res := taskResponse{
		TaskID:          t.ID,
		Script:          t.Script,
		Status:          string(t.Status),
		Stage:           string(t.Stage),
		Progress:        t.Progress,
		CancelRequested: t.CancelRequested,
		Videos:          s.relPaths(t.FinalVideos()),
		Warnings:        t.Warnings,
		Failure:         mapFailure(t.Failure),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}

	for _, a := range t.Artifacts {
		res.Artifacts = append(res.Artifacts, artifactResponse{
			Stage:     string(a.Stage),
			Files:     s.relPaths(a.Paths),
			Duration:  a.Duration.Seconds(),
			Provider:  a.Provider,
			CreatedAt: a.CreatedAt,
		})
	}

	return res
}

func mapSummary(t model.TaskSummary) taskSummaryResponse {
	return taskSummaryResponse{
		TaskID:    t.ID,
		Status:    string(t.Status),
		Stage:     string(t.Stage),
		Progress:  t.Progress,
		Warnings:  t.Warnings,
		Failure:   mapFailure(t.Failure),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func mapPage(p *model.TaskPage) taskPageResponse {
	res := taskPageResponse{
		Tasks:    []taskSummaryResponse{},
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	for _, t := range p.Tasks {
		res.Tasks = append(res.Tasks, mapSummary(t))
	}
	return res
}
