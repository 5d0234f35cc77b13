package server

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GiladLeef/ShortsTurbo/internal/app/cancel"
	"github.com/GiladLeef/ShortsTurbo/internal/app/list"
	"github.com/GiladLeef/ShortsTurbo/internal/app/remove"
	"github.com/GiladLeef/ShortsTurbo/internal/app/status"
	"github.com/GiladLeef/ShortsTurbo/internal/app/submit"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

func (s *Server) handleSubmitVideo(c *gin.Context) {
	s.submitTask(c, "")
}

func (s *Server) handleSubmitSubtitle(c *gin.Context) {
	s.submitTask(c, model.StageSubtitle)
}

func (s *Server) handleSubmitAudio(c *gin.Context) {
	s.submitTask(c, model.StageSpeech)
}

func (s *Server) submitTask(c *gin.Context, stopAfter model.Stage) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("invalid request body: %s: %w", err, model.ErrNotValid))
		return
	}

	cfg := req.toConfig()
	cfg.StopAfter = stopAfter

	task, err := s.submit.Submit(c.Request.Context(), submit.Request{
		Script: req.Script,
		Config: cfg,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	ok(c, gin.H{"task_id": task.ID, "status": string(task.Status)})
}

func (s *Server) handleListTasks(c *gin.Context) {
	page, err := intQuery(c, "page")
	if err != nil {
		s.fail(c, err)
		return
	}
	pageSize, err := intQuery(c, "pageSize")
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.list.Run(c.Request.Context(), list.Request{
		Status:   model.TaskStatus(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	ok(c, mapPage(res))
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.status.Run(c.Request.Context(), status.Request{TaskID: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}

	ok(c, s.mapTask(*task))
}

func (s *Server) handleCancelTask(c *gin.Context) {
	task, err := s.cancel.Run(c.Request.Context(), cancel.Request{TaskID: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}

	ok(c, gin.H{"task_id": task.ID, "status": string(task.Status)})
}

// handleDeleteTask removes the task and its artifacts. Live tasks are
// cancelled first, the API delete is always forced.
func (s *Server) handleDeleteTask(c *gin.Context) {
	task, err := s.remove.Run(c.Request.Context(), remove.Request{
		TaskID: c.Param("id"),
		Force:  true,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	ok(c, gin.H{"task_id": task.ID})
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer: %w", name, model.ErrNotValid)
	}
	return v, nil
}
