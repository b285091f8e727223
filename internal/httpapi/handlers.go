package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/orchestrator"
	"insider-pipeline/internal/query"
	"insider-pipeline/internal/storage"
)

const (
	defaultListLimit = 100
	recentWindow     = 24 * time.Hour
)

type handler struct {
	deps   Deps
	logger *zap.Logger
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) ready(c *gin.Context) {
	if h.deps.Ready != nil {
		if err := h.deps.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// recentInsider lists unified records ingested in the last 24 hours.
func (h *handler) recentInsider(c *gin.Context) {
	since := h.deps.Clock().Add(-recentWindow).UnixMilli()
	recs, err := h.deps.Unified.GetSince(c.Request.Context(), since)
	if err != nil {
		h.internal(c, "list recent insider records", err)
		return
	}
	Ok(c, recs, map[string]any{"count": len(recs), "since": since})
}

func (h *handler) listInsider(c *gin.Context) {
	ctx := c.Request.Context()
	if raw := c.Query("exchange"); raw != "" {
		exchange, ok := domain.ParseExchange(strings.ToUpper(strings.TrimSpace(raw)))
		if !ok {
			Error(c, http.StatusBadRequest, "invalid exchange", map[string]any{"exchange": raw})
			return
		}
		recs, err := h.deps.Unified.GetByExchange(ctx, exchange)
		if err != nil {
			h.internal(c, "list insider records by exchange", err)
			return
		}
		Ok(c, recs, map[string]any{"count": len(recs), "exchange": exchange})
		return
	}

	limit := intQuery(c, "limit", defaultListLimit)
	recs, err := h.deps.Unified.GetAll(ctx, limit)
	if err != nil {
		h.internal(c, "list insider records", err)
		return
	}
	Ok(c, recs, map[string]any{"count": len(recs), "limit": limit})
}

func (h *handler) insiderByScrip(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	recs, err := h.deps.Unified.GetByScripCode(c.Request.Context(), code)
	if err != nil {
		h.internal(c, "list insider records by scrip", err)
		return
	}
	Ok(c, recs, map[string]any{"count": len(recs), "scripCode": code})
}

func (h *handler) insiderByID(c *gin.Context) {
	rec, err := h.deps.Unified.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		Error(c, http.StatusNotFound, "record not found", nil)
		return
	}
	if err != nil {
		h.internal(c, "get insider record", err)
		return
	}
	Ok(c, rec, nil)
}

func (h *handler) listBulkDeals(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		deals []*domain.BulkDeal
		err   error
	)
	switch {
	case c.Query("scrip") != "":
		deals, err = h.deps.BulkDeals.GetByScripCode(ctx, c.Query("scrip"))
	case c.Query("client") != "":
		deals, err = h.deps.BulkDeals.GetByClient(ctx, c.Query("client"))
	case c.Query("date") != "":
		deals, err = h.deps.BulkDeals.GetByDate(ctx, c.Query("date"))
	default:
		deals, err = h.deps.BulkDeals.GetAll(ctx, intQuery(c, "limit", defaultListLimit))
	}
	if err != nil {
		h.internal(c, "list bulk deals", err)
		return
	}
	Ok(c, deals, map[string]any{"count": len(deals)})
}

func (h *handler) upcomingCorporateActions(c *gin.Context) {
	now := h.deps.Clock().UnixMilli()
	actions, err := h.deps.CorporateActions.GetUpcoming(c.Request.Context(), now, intQuery(c, "limit", defaultListLimit))
	if err != nil {
		h.internal(c, "list upcoming corporate actions", err)
		return
	}
	Ok(c, actions, map[string]any{"count": len(actions)})
}

// requireCronSecret accepts only "Authorization: Bearer <secret>".
// With no secret configured every request is rejected.
func (h *handler) requireCronSecret(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || h.deps.CronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.deps.CronSecret)) != 1 {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		c.Abort()
		return
	}
	c.Next()
}

func (h *handler) triggerJob(c *gin.Context) {
	if h.deps.Jobs == nil {
		Error(c, http.StatusServiceUnavailable, "ingestion unavailable", nil)
		return
	}
	job, err := orchestrator.ParseJob(c.Param("job"))
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := domain.RowFilter{ScripCode: strings.TrimSpace(c.Query("scrip"))}
	summary, err := h.deps.Jobs.RunWithFilter(c.Request.Context(), job, filter)
	switch {
	case errors.Is(err, orchestrator.ErrRunInProgress):
		Error(c, http.StatusConflict, err.Error(), map[string]any{"job": job})
		return
	case err != nil && summary == nil:
		h.internal(c, "run job", err)
		return
	case err != nil:
		h.logger.Warn("job failed", zap.String("job", string(job)), zap.Error(err))
		c.JSON(http.StatusBadGateway, apiResponse{
			Code:    http.StatusBadGateway,
			Message: err.Error(),
			Data:    summary,
		})
		return
	}
	Ok(c, summary, map[string]any{"job": job})
}

type aiQueryRequest struct {
	Query string `json:"query"`
	Date  string `json:"date"`
}

func (h *handler) aiQuery(c *gin.Context) {
	if h.deps.Searcher == nil {
		Error(c, http.StatusServiceUnavailable, "search unavailable", nil)
		return
	}
	var req aiQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	res, err := h.deps.Searcher.Search(c.Request.Context(), req.Query, req.Date)
	switch {
	case errors.Is(err, query.ErrEmptyQuery):
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, query.ErrNoData):
		Error(c, http.StatusNotFound, err.Error(), map[string]any{"success": false})
		return
	case err != nil:
		h.internal(c, "search", err)
		return
	}
	Ok(c, res, map[string]any{"success": true, "count": len(res.Matches), "namespace": res.Namespace})
}

type subscriberRequest struct {
	ExternalID string `json:"externalId" binding:"required"`
	Name       string `json:"name"`
	Email      string `json:"email" binding:"omitempty,email"`
}

func (h *handler) upsertSubscriber(c *gin.Context) {
	if h.deps.Subscribers == nil {
		Error(c, http.StatusServiceUnavailable, "subscribers unavailable", nil)
		return
	}
	var req subscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	sub, err := h.deps.Subscribers.Upsert(c.Request.Context(), &domain.Subscriber{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Email:      req.Email,
		CreatedAt:  h.deps.Clock().UnixMilli(),
	})
	if err != nil {
		h.internal(c, "upsert subscriber", err)
		return
	}
	Ok(c, sub, nil)
}

func (h *handler) internal(c *gin.Context, op string, err error) {
	h.logger.Error(op+" failed", zap.Error(err))
	Error(c, http.StatusInternalServerError, "internal error", nil)
}
