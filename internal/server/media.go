package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

func (s *Server) handleListMusics(c *gin.Context) {
	songs, err := s.music.List()
	if err != nil {
		s.fail(c, err)
		return
	}

	res := []songResponse{}
	for _, song := range songs {
		duration, err := s.prober.Probe(c.Request.Context(), song.Path)
		if err != nil {
			s.logger.Warningf("Could not probe song %s: %s", song.Name, err)
		}
		res = append(res, songResponse{
			Name:     song.Name,
			Size:     song.Size,
			File:     s.relPath(song.Path),
			Duration: duration.Seconds(),
		})
	}

	ok(c, gin.H{"files": res})
}

func (s *Server) handleUploadMusic(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.fail(c, fmt.Errorf("song file is required: %w", model.ErrNotValid))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("could not open uploaded file: %w", err))
		return
	}
	defer file.Close()

	song, err := s.music.Save(header.Filename, file)
	if err != nil {
		s.fail(c, err)
		return
	}

	ok(c, songResponse{
		Name: song.Name,
		Size: song.Size,
		File: s.relPath(song.Path),
	})
}

// handleStream serves an artifact honoring Range requests so browsers can
// seek produced videos.
func (s *Server) handleStream(c *gin.Context) {
	path, err := s.artifactPath(c.Param("path"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.File(path)
}

func (s *Server) handleDownload(c *gin.Context) {
	path, err := s.artifactPath(c.Param("path"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

// artifactPath resolves a request path against the task data directory and
// rejects anything escaping it.
func (s *Server) artifactPath(rel string) (string, error) {
	root := filepath.Join(s.dataDir, conventions.TasksDir)
	path := filepath.Join(root, rel)
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the task data directory: %w", model.ErrNotValid)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("artifact not found: %w", model.ErrNotFound)
	}

	return path, nil
}
