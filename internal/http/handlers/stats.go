package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/inventoryhub/internal/config"
	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/gin-gonic/gin"
)

type StatsProvider interface {
	Compute(ctx context.Context) (item.Stats, error)
	LowStock(ctx context.Context, threshold int64) ([]item.Item, error)
}

type StatsHandler struct {
	stats StatsProvider
}

func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

type LowStockQuery struct {
	Threshold int64 `form:"threshold,default=10" binding:"min=0"`
}

func (h *StatsHandler) GetStats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	st, err := h.stats.Compute(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not compute stats", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, st)
}

func (h *StatsHandler) LowStock(ctx *gin.Context) {
	var q LowStockQuery

	if !BindQuery(ctx, &q) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.stats.LowStock(cctx, q.Threshold)

	if err != nil {
		RespondInternal(ctx, "Could not list low stock items", err)
		return
	}

	if items == nil {
		items = []item.Item{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"threshold": q.Threshold,
		"items":     items,
		"count":     len(items),
	})
}
