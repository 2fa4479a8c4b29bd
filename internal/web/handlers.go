package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/eric/internal/jobs"
	"github.com/mesh-intelligence/eric/internal/refresh"
	"github.com/mesh-intelligence/eric/pkg/items"
	"github.com/mesh-intelligence/eric/pkg/types"
)

// webhookBody is either a subscription challenge or an event.
type webhookBody struct {
	Challenge *string `json:"challenge"`
	Event     *struct {
		PulseID json.Number `json:"pulseId"`
	} `json:"event"`
}

// handleWebhook answers monday.com's challenge handshake and queues a refresh
// of the item named by an event.
func (s *Server) handleWebhook(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body webhookBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		if body.Challenge != nil {
			c.JSON(http.StatusOK, gin.H{"challenge": *body.Challenge})
			return
		}
		if body.Event == nil || body.Event.PulseID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event.pulseId required"})
			return
		}
		if _, err := body.Event.PulseID.Int64(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event.pulseId must be an integer"})
			return
		}
		id := body.Event.PulseID.String()

		if _, err := s.enqueueRefresh(kind, id); err != nil {
			s.cfg.Logger.Error("could not queue refresh", "kind", kind, "id", id, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "OK"})
	}
}

func (s *Server) enqueueRefresh(kind, id string) (string, error) {
	r := s.cfg.Refresher
	var fn jobs.Func
	switch kind {
	case refresh.KindRefreshDevice:
		fn = func(ctx context.Context) error { return r.RefreshDevice(ctx, id) }
	case refresh.KindRefreshProduct:
		fn = func(ctx context.Context) error { return r.RefreshProduct(ctx, id) }
	default:
		return "", fmt.Errorf("unknown job kind %q", kind)
	}
	return s.cfg.Jobs.Enqueue(kind, kind+":"+id, fn)
}

// handleWarm queues a full cache warm.
func (s *Server) handleWarm(c *gin.Context) {
	r := s.cfg.Refresher
	id, err := s.cfg.Jobs.Enqueue(refresh.KindWarmAll, refresh.KindWarmAll, func(ctx context.Context) error {
		stats, err := r.WarmAll(ctx)
		if err == nil {
			s.cfg.Logger.Info("cache warmed", "devices", stats.Devices, "products", stats.Products, "orphans", stats.Orphans)
		}
		return err
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

// handleCacheGet serves a record snapshot through the cacheable read path.
// X-Cache reports whether the snapshot came from the cache.
func (s *Server) handleCacheGet(c *gin.Context) {
	ctx := c.Request.Context()
	rec, err := items.NewCacheable(s.cfg.Env, c.Param("type"), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if lookup, err := rec.FetchCacheSnapshot(ctx); err == nil && lookup.Hit && json.Valid(lookup.Data) {
		c.Header("X-Cache", "HIT")
		c.Data(http.StatusOK, "application/json; charset=utf-8", lookup.Data)
		return
	}

	if err := rec.Load(ctx, nil); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	snapshot, err := rec.PrepareCacheData(items.WithoutAlerts(ctx))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, snapshot)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.cfg.Health != nil {
		if err := s.cfg.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
