package item

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/inventoryhub/internal/domain/oid"
)

const (
	// LowStockThreshold is fixed and independent of an item's own MinStock.
	LowStockThreshold = 10
	DefaultMinStock   = 10
)

var (
	ErrNotFound = errors.New("item not found")
	ErrNoFields = errors.New("no fields to update")
)

type Item struct {
	ID          oid.ID     `json:"_id"`
	Name        string     `json:"name"`
	ItemCode    string     `json:"item_code"`
	Category    string     `json:"category"`
	Quantity    int64      `json:"quantity"`
	Price       float64    `json:"price"`
	MinStock    int64      `json:"min_stock"`
	Description string     `json:"description,omitempty"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Search   *string
	Category *string
	Limit    int
	Offset   int
}

type CreateItemRequest struct {
	Name        string   `json:"name" binding:"required,max=200"`
	ItemCode    string   `json:"item_code" binding:"required,max=100"`
	Category    string   `json:"category" binding:"required,max=100"`
	Quantity    *Int     `json:"quantity" binding:"required,min=0"`
	Price       *Decimal `json:"price" binding:"required,min=0"`
	MinStock    *Int     `json:"min_stock" binding:"omitnil,min=0"`
	Description string   `json:"description" binding:"omitempty,max=2000"`
}

// UpdateItemRequest is a partial update; nil fields are left untouched.
type UpdateItemRequest struct {
	Name        *string  `json:"name" binding:"omitnil,min=1,max=200"`
	ItemCode    *string  `json:"item_code" binding:"omitnil,min=1,max=100"`
	Category    *string  `json:"category" binding:"omitnil,min=1,max=100"`
	Quantity    *Int     `json:"quantity" binding:"omitnil,min=0"`
	Price       *Decimal `json:"price" binding:"omitnil,min=0"`
	MinStock    *Int     `json:"min_stock" binding:"omitnil,min=0"`
	Description *string  `json:"description" binding:"omitnil,max=2000"`
}

// Patch is the storage-facing form of an UpdateItemRequest.
type Patch struct {
	Name        *string
	ItemCode    *string
	Category    *string
	Quantity    *int64
	Price       *float64
	MinStock    *int64
	Description *string
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.ItemCode == nil && p.Category == nil &&
		p.Quantity == nil && p.Price == nil && p.MinStock == nil && p.Description == nil
}

// Apply copies the supplied fields onto it and stamps UpdatedAt.
func (p Patch) Apply(it *Item, now time.Time) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.ItemCode != nil {
		it.ItemCode = *p.ItemCode
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.MinStock != nil {
		it.MinStock = *p.MinStock
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	it.UpdatedAt = &now
}

func (r UpdateItemRequest) Patch() Patch {
	p := Patch{
		Name:        r.Name,
		ItemCode:    r.ItemCode,
		Category:    r.Category,
		Description: r.Description,
	}

	if r.Quantity != nil {
		v := r.Quantity.Int64()
		p.Quantity = &v
	}
	if r.Price != nil {
		v := r.Price.Float64()
		p.Price = &v
	}
	if r.MinStock != nil {
		v := r.MinStock.Int64()
		p.MinStock = &v
	}

	return p
}

func NewFromCreateRequest(req CreateItemRequest, now time.Time) Item {
	minStock := int64(DefaultMinStock)
	if req.MinStock != nil {
		minStock = req.MinStock.Int64()
	}

	return Item{
		ID:          oid.New(),
		Name:        req.Name,
		ItemCode:    req.ItemCode,
		Category:    req.Category,
		Quantity:    req.Quantity.Int64(),
		Price:       req.Price.Float64(),
		MinStock:    minStock,
		Description: req.Description,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
}

// Matches reports whether it passes the filter's search and category tests.
func (f ListFilter) Matches(it Item) bool {
	if f.Category != nil && it.Category != *f.Category {
		return false
	}

	if f.Search != nil && *f.Search != "" {
		needle := strings.ToLower(*f.Search)
		return strings.Contains(strings.ToLower(it.Name), needle) ||
			strings.Contains(strings.ToLower(it.Description), needle) ||
			strings.Contains(strings.ToLower(it.ItemCode), needle)
	}

	return true
}

type CategoryCount struct {
	Category *string `json:"category"`
	Count    int64   `json:"count"`
}

type Stats struct {
	TotalItems    int64           `json:"total_items"`
	LowStockItems int64           `json:"low_stock_items"`
	TotalValue    float64         `json:"total_value"`
	Categories    []CategoryCount `json:"categories"`
}

// SortCategories orders by count descending, keeping input order for ties.
func SortCategories(cs []CategoryCount) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Count > cs[j].Count
	})
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
