package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/creatorlens/creatorlens/internal/cache"
	"github.com/creatorlens/creatorlens/internal/engine"
	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/internal/providers"
)

const analyticsCacheTTL = time.Minute

type ingestRequest struct {
	OwnerID string                   `json:"ownerId"`
	Account providers.AccountPayload `json:"account"`
	Media   []providers.PostPayload  `json:"media"`
}

// ingestHandler handles POST /v1/platforms/:platform/ingest
func (r *Router) ingestHandler(c *gin.Context) {
	platform := models.Platform(c.Param("platform"))

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := r.engine.UpsertPlatformData(c.Request.Context(), req.OwnerID, platform, req.Account, req.Media)
	if err != nil {
		if engine.IsValidationError(err) {
			respondError(c, http.StatusBadRequest, "invalid payload", err)
			return
		}
		r.logger.Error("Ingest failed", zap.String("platform", platform.String()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to merge platform data", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// refreshHandler handles POST /v1/refresh
func (r *Router) refreshHandler(c *gin.Context) {
	opts := engine.RunOptions{OwnerID: c.Query("owner")}
	if raw := c.Query("delay"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid delay parameter", err)
			return
		}
		opts.SpacingOverride = d
	}

	// Interactive trigger runs under a bounded deadline; an expired
	// deadline abandons the run, it does not corrupt it.
	ctx, cancel := context.WithTimeout(c.Request.Context(), r.cfg.Refresh.RunDeadline)
	defer cancel()

	report, err := r.refresher.RefreshTrackedAccounts(ctx, opts)
	if err != nil {
		r.logger.Error("Refresh run failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "refresh run failed", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// syncAllHandler handles POST /v1/sync-all
func (r *Router) syncAllHandler(c *gin.Context) {
	ownerID := c.Query("owner")

	ctx, cancel := context.WithTimeout(c.Request.Context(), r.cfg.Refresh.RunDeadline)
	defer cancel()

	results, err := r.refresher.SyncAllPlatforms(ctx, ownerID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "platform sweep failed", err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// deleteAccountHandler handles DELETE /v1/accounts/:id
func (r *Router) deleteAccountHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid account id", err)
		return
	}

	if err := r.store.Accounts.Delete(c.Request.Context(), id); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to delete account", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// overviewHandler handles GET /v1/analytics/overview
func (r *Router) overviewHandler(c *gin.Context) {
	ownerID := c.Query("owner")
	cacheKey := cache.HashKey("analytics_overview", ownerID)

	var cached engine.OverviewReport
	if err := r.cache.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, &cached)
		return
	}

	accounts, posts, err := r.loadCollections(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load analytics data", err)
		return
	}

	report := engine.BuildOverview(accounts, posts)
	if err := r.cache.SetJSON(c.Request.Context(), cacheKey, report, analyticsCacheTTL); err != nil && err != cache.ErrCacheDisabled {
		r.logger.Warn("Failed to cache overview report", zap.Error(err))
	}

	c.JSON(http.StatusOK, report)
}

// dailyPerformanceHandler handles GET /v1/analytics/daily
func (r *Router) dailyPerformanceHandler(c *gin.Context) {
	ownerID := c.Query("owner")
	cacheKey := cache.HashKey("analytics_daily", ownerID)

	var cached engine.DailyPerformance
	if err := r.cache.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, &cached)
		return
	}

	_, posts, err := r.loadCollections(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load analytics data", err)
		return
	}

	performance := engine.BuildDailyPerformance(posts)
	if err := r.cache.SetJSON(c.Request.Context(), cacheKey, performance, analyticsCacheTTL); err != nil && err != cache.ErrCacheDisabled {
		r.logger.Warn("Failed to cache daily performance", zap.Error(err))
	}

	c.JSON(http.StatusOK, performance)
}

// rollingMedianHandler handles GET /v1/analytics/rolling-median
func (r *Router) rollingMedianHandler(c *gin.Context) {
	ownerID := c.Query("owner")

	referenceDates, err := parseDates(c.Query("dates"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid dates parameter", err)
		return
	}

	_, posts, err := r.loadCollections(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load analytics data", err)
		return
	}

	c.JSON(http.StatusOK, engine.BuildRollingMedianSeries(posts, referenceDates))
}

// healthHandler handles GET /health
func (r *Router) healthHandler(c *gin.Context) {
	status := gin.H{"status": "OK", "service": "creatorlens-api"}

	if err := r.database.Health(c.Request.Context()); err != nil {
		status["status"] = "DEGRADED"
		status["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	if err := r.cache.Health(c.Request.Context()); err != nil && err != cache.ErrCacheDisabled {
		status["cache"] = err.Error()
	}

	c.JSON(http.StatusOK, status)
}

// loadCollections fetches the account and post collections the pure
// aggregators fold over.
func (r *Router) loadCollections(ctx context.Context, ownerID string) ([]*models.Account, []*models.Post, error) {
	accounts, err := r.store.Accounts.ListTracked(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}

	posts, err := r.store.Posts.ListByAccounts(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return accounts, posts, nil
}

func parseDates(raw string) ([]time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	dates := make([]time.Time, 0, len(parts))
	for _, part := range parts {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func respondError(c *gin.Context, status int, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}
