package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/geocoder89/inventoryhub/internal/config"
	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/gin-gonic/gin"
)

type ItemStore interface {
	Create(ctx context.Context, it item.Item) (item.Item, error)
	List(ctx context.Context, f item.ListFilter) ([]item.Item, int64, error)
	GetByID(ctx context.Context, id oid.ID) (item.Item, error)
	Update(ctx context.Context, id oid.ID, p item.Patch) (item.Item, error)
	Delete(ctx context.Context, id oid.ID) error
}

// StatsInvalidator is told about every successful item mutation.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

type ItemsHandler struct {
	repo  ItemStore
	stats StatsInvalidator
	now   func() time.Time
}

func NewItemsHandler(repo ItemStore, stats StatsInvalidator) *ItemsHandler {
	return &ItemsHandler{
		repo:  repo,
		stats: stats,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type ListItemsQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=10" binding:"min=1,max=100"`
	Search   string `form:"search" binding:"max=200"`
	Category string `form:"category" binding:"max=100"`
}

// maxListOffset bounds (page-1)*limit well inside every store's skip range.
const maxListOffset = math.MaxInt32

type ListItemsResponse struct {
	Items []item.Item `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Pages int64       `json:"pages"`
}

// empty query values mean "no filter"
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func pageCount(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

func (h *ItemsHandler) mutated(ctx *gin.Context) {
	if h.stats != nil {
		h.stats.Invalidate(ctx.Request.Context())
	}
}

// parseID writes the 400 itself when the path id is malformed.
func parseID(ctx *gin.Context) (oid.ID, bool) {
	id, err := oid.Parse(ctx.Param("id"))

	if err != nil {
		RespondBadRequest(ctx, "Invalid item id", gin.H{"id": "must be a 24 character hex string"})
		return oid.Nil, false
	}

	return id, true
}

func (h *ItemsHandler) ListItems(ctx *gin.Context) {
	var q ListItemsQuery

	if !BindQuery(ctx, &q) {
		return
	}

	if q.Page-1 > maxListOffset/q.Limit {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{
			"fields": []FieldError{{Field: "page", Rule: "max", Message: "is beyond the last addressable page"}},
		})
		return
	}

	filter := item.ListFilter{
		Search:   optional(q.Search),
		Category: optional(q.Category),
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list items", err)
		return
	}

	if items == nil {
		items = []item.Item{}
	}

	ctx.JSON(http.StatusOK, ListItemsResponse{
		Items: items,
		Total: total,
		Page:  q.Page,
		Pages: pageCount(total, q.Limit),
	})
}

func (h *ItemsHandler) GetItemByID(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	it, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			RespondNotFound(ctx, "Item not found")
			return
		}
		RespondInternal(ctx, "Could not fetch item", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, it)
}

func (h *ItemsHandler) CreateItem(ctx *gin.Context) {
	var req item.CreateItemRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, item.NewFromCreateRequest(req, h.now()))

	if err != nil {
		RespondInternal(ctx, "Could not create item", err)
		return
	}

	h.mutated(ctx)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Item created successfully",
		"id":      created.ID,
	})
}

func (h *ItemsHandler) UpdateItem(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req item.UpdateItemRequest

	if !BindJSON(ctx, &req) {
		return
	}

	patch := req.Patch()

	if patch.IsEmpty() {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, id, patch)

	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			RespondNotFound(ctx, "Item not found")
			return
		}
		RespondInternal(ctx, "Could not update item", err)
		return
	}

	h.mutated(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Item updated successfully",
		"item":    updated,
	})
}

func (h *ItemsHandler) DeleteItem(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			RespondNotFound(ctx, "Item not found")
			return
		}
		RespondInternal(ctx, "Could not delete item", err)
		return
	}

	h.mutated(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}
