package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Skufu/symptom-checker/internal/analysis"
	"github.com/Skufu/symptom-checker/internal/history"
	"github.com/Skufu/symptom-checker/internal/model"
)

type startCheckRequest struct {
	Symptom *string `json:"symptom"`
}

type analyzeRequest struct {
	FullContext *string                     `json:"fullContext"`
	Symptom     string                      `json:"symptom"`
	Answers     []model.ClarificationAnswer `json:"answers"`
}

var availableEndpoints = []string{
	"GET /api/health",
	"POST /api/start-check",
	"POST /api/analyze",
	"GET /api/conditions",
	"GET /api/history",
	"GET /api/stats",
}

func requestMeta(c *gin.Context) model.RequestMeta {
	return model.RequestMeta{
		RequestID: c.GetString(requestIDKey),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// bindJSON decodes the body and answers with the right envelope on failure.
func bindJSON(c *gin.Context, dst any, typeMsg string) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortWithError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body is too large")
		return false
	}
	abortWithError(c, http.StatusBadRequest, CodeInvalidInputType, typeMsg)
	return false
}

func (h *handler) startCheck(c *gin.Context) {
	var req startCheckRequest
	if !bindJSON(c, &req, "Symptom is required and must be a string") {
		return
	}
	if req.Symptom == nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidInputType, "Symptom is required and must be a string")
		return
	}

	symptom := sanitize(*req.Symptom)
	if verr := validateSymptom(symptom); verr != nil {
		abortWithError(c, http.StatusBadRequest, verr.code, verr.msg)
		return
	}

	result := h.checker.StartCheck(c.Request.Context(), symptom, requestMeta(c))
	if result.IsEmergency {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"isEmergency": true,
			"message":     result.Message,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"questions": result.Questions,
	})
}

func (h *handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if !bindJSON(c, &req, "Full context is required and must be a string") {
		return
	}

	answers := make([]model.ClarificationAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, model.ClarificationAnswer{Question: sanitize(a.Question), Answer: sanitize(a.Answer)})
	}

	var contextText string
	switch {
	case req.FullContext != nil && strings.TrimSpace(*req.FullContext) != "":
		contextText = sanitize(*req.FullContext)
	case strings.TrimSpace(req.Symptom) != "" && len(answers) > 0:
		contextText = analysis.BuildContext(sanitize(req.Symptom), answers)
	default:
		abortWithError(c, http.StatusBadRequest, CodeInvalidInputType, "Full context is required and must be a string")
		return
	}
	if verr := validateContext(contextText); verr != nil {
		abortWithError(c, http.StatusBadRequest, verr.code, verr.msg)
		return
	}

	result := h.checker.Analyze(c.Request.Context(), analysis.AnalyzeRequest{
		Context: contextText,
		Answers: answers,
		Meta:    requestMeta(c),
	})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

func (h *handler) listConditions(c *gin.Context) {
	conditions, err := h.conditions.FindAll(c.Request.Context())
	if err != nil {
		h.internalError(c, "list conditions", err)
		return
	}
	sort.SliceStable(conditions, func(i, j int) bool { return conditions[i].Name < conditions[j].Name })

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(conditions),
		"data":    conditions,
	})
}

func (h *handler) recentHistory(c *gin.Context) {
	entries, err := h.history.Recent(c.Request.Context(), history.DefaultRecentLimit)
	if err != nil {
		h.internalError(c, "recent history", err)
		return
	}
	out := make([]model.QueryLogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Public())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(out),
		"data":    out,
	})
}

func (h *handler) stats(c *gin.Context) {
	var total, emergencies, conditions int

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		total, err = h.history.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		emergencies, err = h.history.CountEmergencies(ctx)
		return err
	})
	g.Go(func() (err error) {
		conditions, err = h.conditions.Count(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.internalError(c, "stats", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"totalQueries":     total,
			"emergencyQueries": emergencies,
			"conditionsCount":  conditions,
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
		"database":    h.databaseStatus(c.Request.Context()),
	})
}

func (h *handler) ready(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"db":     fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"db":     "ok",
	})
}

func (h *handler) databaseStatus(ctx context.Context) string {
	if h.db == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

func (h *handler) internalError(c *gin.Context, op string, err error) {
	h.logger.ErrorContext(c.Request.Context(), op+" failed", "error", err, "request_id", c.GetString(requestIDKey))
	abortWithError(c, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred. Please try again.")
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success":            false,
		"error":              "Endpoint not found",
		"code":               CodeNotFound,
		"path":               c.Request.URL.Path,
		"availableEndpoints": availableEndpoints,
	})
}
