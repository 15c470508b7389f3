package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
)

type generatePlanRequest struct {
	UserID string `json:"userId"`
	Input  string `json:"input"`
}

type syncRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) generatePlan(c *gin.Context) {
	var req generatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	ctx := c.Request.Context()
	plan, err := s.planner.GeneratePlan(ctx, model.UserID(req.UserID), req.Input)
	if err != nil {
		s.metrics.plansTotal.WithLabelValues("error").Inc()
		s.fail(c, err)
		return
	}
	s.metrics.plansTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"fitnessPlan": plan.Text,
	})
}

func (s *Server) syncEmbeddings(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	result, err := s.planner.SyncEmbeddings(c.Request.Context(), model.UserID(req.UserID))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.embeddedTotal.WithLabelValues(string(model.DocumentKindPlan)).Add(float64(result.Plans))
	s.metrics.embeddedTotal.WithLabelValues(string(model.DocumentKindEntry)).Add(float64(result.Entries))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"plans":   result.Plans,
		"entries": result.Entries,
	})
}

// fail maps a pipeline error to a response. Only a missing user id is a
// client error; everything else is reported as 500 with the error message.
func (s *Server) fail(c *gin.Context, err error) {
	logging.From(c.Request.Context()).Error("request failed", "error", err)

	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrUserIDRequired) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
