package ui

import (
	"net/http"
	"strconv"

	"gouplift/domain/core"
	"gouplift/domain/run"
	apperrors "gouplift/internal/errors"
	"gouplift/internal/report"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	runs, err := s.repo.List(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	r, ok := s.loadRun(c)
	if !ok {
		return
	}
	s.metrics.ReportsServed.WithLabelValues("json").Inc()
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleRunsPage(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	runs, err := s.repo.List(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.renderTemplate(c, "runs.html", gin.H{"Runs": runs})
}

func (s *Server) handleRunPage(c *gin.Context) {
	r, ok := s.loadRun(c)
	if !ok {
		return
	}
	s.metrics.ReportsServed.WithLabelValues("html").Inc()
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(r))
}

func (s *Server) loadRun(c *gin.Context) (*run.Report, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	r, err := s.repo.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return r, true
}

// writeError maps application error codes onto HTTP statuses
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeConfigError, apperrors.CodeDataError:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperrors.GetCode(err)})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxListLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer in [1, 500]"})
		return 0, false
	}
	return limit, true
}
