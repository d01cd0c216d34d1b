// Package admin serves the operator panel: a dump of every store and the
// headline numbers.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"santua/internal/matching"
	"santua/internal/stats"
	"santua/internal/sticker"
	"santua/internal/sync"
)

type Handler struct {
	Matching *matching.Service
	Stickers *sticker.Registry
	Visitors *stats.Tracker
	Hub      *sync.Hub
	Log      *zap.Logger
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/data", h.data)
	rg.GET("/stats", h.stats)
}

// data returns found entries as "hallazgos" and lost ones as "busquedas",
// the keys the panel reads.
func (h *Handler) data(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.Matching.Snapshot(ctx)
	if err != nil {
		h.fail(c, "list entries", err)
		return
	}
	stickers, err := h.Stickers.List(ctx)
	if err != nil {
		h.fail(c, "list stickers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hallazgos": snap.Found,
		"busquedas": snap.Lost,
		"stickers":  stickers,
	})
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.Matching.Counts(ctx)
	if err != nil {
		h.fail(c, "count entries", err)
		return
	}
	st, err := h.Stickers.Stats(ctx)
	if err != nil {
		h.fail(c, "sticker stats", err)
		return
	}

	visitors := h.Visitors.Snapshot()
	out := gin.H{
		"online":      visitors.Online,
		"visitas":     visitors.Visits,
		"total_found": counts.Found,
		"total_lost":  counts.Lost,
		"stickers":    st,
	}
	if h.Hub != nil {
		out["watchers"] = h.Hub.Stats()
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if h.Log != nil {
		h.Log.Error("admin "+op+" failed", zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}
