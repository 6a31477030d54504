package item_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestIntUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: `5`, want: 5},
		{in: `"5"`, want: 5},
		{in: `" 12 "`, want: 12},
		{in: `5.0`, want: 5},
		{in: `-3`, want: -3},
		{in: `"abc"`, wantErr: true},
		{in: `5.5`, wantErr: true},
		{in: `true`, wantErr: true},
		{in: `{}`, wantErr: true},
		{in: `""`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n item.Int
			err := json.Unmarshal([]byte(tt.in), &n)

			if tt.wantErr {
				var typeErr *json.UnmarshalTypeError
				require.Error(t, err)
				assert.True(t, errors.As(err, &typeErr), "want UnmarshalTypeError, got %T", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, int64(n))
		})
	}
}

func TestDecimalUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: `2.5`, want: 2.5},
		{in: `"2.50"`, want: 2.5},
		{in: `10`, want: 10},
		{in: `"ten"`, wantErr: true},
		{in: `"NaN"`, wantErr: true},
		{in: `"Inf"`, wantErr: true},
		{in: `[1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d item.Decimal
			err := json.Unmarshal([]byte(tt.in), &d)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, float64(d))
		})
	}
}

func TestCreateRequestFieldErrorIsReportedByName(t *testing.T) {
	var req item.CreateItemRequest
	err := json.Unmarshal([]byte(`{"name":"a","quantity":"abc"}`), &req)

	var typeErr *json.UnmarshalTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "quantity", typeErr.Field)
}

func TestNewFromCreateRequest(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q, p := item.Int(4), item.Decimal(1.25)

	it := item.NewFromCreateRequest(item.CreateItemRequest{
		Name: "Bolt", ItemCode: "B-1", Category: "hardware", Quantity: &q, Price: &p,
	}, now)

	assert.False(t, it.ID.IsZero())
	assert.EqualValues(t, 4, it.Quantity)
	assert.Equal(t, 1.25, it.Price)
	assert.EqualValues(t, item.DefaultMinStock, it.MinStock)
	require.NotNil(t, it.CreatedAt)
	assert.Equal(t, now, *it.CreatedAt)
	assert.Equal(t, now, *it.UpdatedAt)

	ms := item.Int(2)
	it = item.NewFromCreateRequest(item.CreateItemRequest{Quantity: &q, Price: &p, MinStock: &ms}, now)
	assert.EqualValues(t, 2, it.MinStock)
}

func TestPatchApplyOnlyTouchesSuppliedFields(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	it := item.Item{Name: "Bolt", ItemCode: "B-1", Category: "hardware", Quantity: 4, Price: 1.25, MinStock: 10, CreatedAt: &created, UpdatedAt: &created}

	q := item.Int(9)
	patch := item.UpdateItemRequest{Quantity: &q, Description: strPtr("zinc")}.Patch()
	require.False(t, patch.IsEmpty())

	later := created.Add(time.Hour)
	patch.Apply(&it, later)

	assert.Equal(t, "Bolt", it.Name)
	assert.Equal(t, 1.25, it.Price)
	assert.EqualValues(t, 9, it.Quantity)
	assert.Equal(t, "zinc", it.Description)
	assert.Equal(t, created, *it.CreatedAt)
	assert.Equal(t, later, *it.UpdatedAt)

	assert.True(t, item.UpdateItemRequest{}.Patch().IsEmpty())
}

func TestListFilterMatches(t *testing.T) {
	it := item.Item{Name: "Red Hammer", ItemCode: "HM-01", Category: "tools", Description: "steel head"}

	tests := []struct {
		name   string
		filter item.ListFilter
		want   bool
	}{
		{name: "no filter", filter: item.ListFilter{}, want: true},
		{name: "name case-insensitive", filter: item.ListFilter{Search: strPtr("hammer")}, want: true},
		{name: "description", filter: item.ListFilter{Search: strPtr("STEEL")}, want: true},
		{name: "item code", filter: item.ListFilter{Search: strPtr("hm-0")}, want: true},
		{name: "no match", filter: item.ListFilter{Search: strPtr("saw")}, want: false},
		{name: "regex chars are literal", filter: item.ListFilter{Search: strPtr("h.*r")}, want: false},
		{name: "category exact", filter: item.ListFilter{Category: strPtr("tools")}, want: true},
		{name: "category is not substring", filter: item.ListFilter{Category: strPtr("tool")}, want: false},
		{name: "search and category", filter: item.ListFilter{Search: strPtr("hammer"), Category: strPtr("paint")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(it))
		})
	}
}

func TestSortCategoriesIsStable(t *testing.T) {
	a, b, c := "a", "b", "c"
	cs := []item.CategoryCount{{Category: &a, Count: 1}, {Category: &b, Count: 3}, {Category: nil, Count: 1}, {Category: &c, Count: 3}}

	item.SortCategories(cs)

	got := make([]string, 0, len(cs))
	for _, x := range cs {
		if x.Category == nil {
			got = append(got, "<nil>")
			continue
		}
		got = append(got, *x.Category)
	}

	assert.Equal(t, []string{"b", "c", "a", "<nil>"}, got)
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 42.5, item.RoundMoney(5*2.50+3*10.00))
	assert.Equal(t, 0.3, item.RoundMoney(0.1+0.2))
	assert.Equal(t, 1.01, item.RoundMoney(1.005000001))
	assert.Equal(t, 0.0, item.RoundMoney(0))
}
