package models_test

import (
	"testing"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
)

func TestGetPaginationParams(t *testing.T) {
	cases := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
	}{
		{"defaults on empty", "", "", 1, 20},
		{"garbage falls back", "abc", "xyz", 1, 20},
		{"explicit values", "3", "50", 3, 50},
		{"zero page clamps to one", "0", "10", 1, 10},
		{"negative values clamp", "-2", "-5", 1, 20},
		{"limit capped at 100", "1", "500", 1, 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			params := models.GetPaginationParams(c.page, c.limit)
			if params.Page != c.wantPage || params.Limit != c.wantLimit {
				t.Fatalf("got page=%d limit=%d, want page=%d limit=%d",
					params.Page, params.Limit, c.wantPage, c.wantLimit)
			}
		})
	}
}

func TestPaginationParams_Offset(t *testing.T) {
	params := models.PaginationParams{Page: 3, Limit: 25}
	if got := params.Offset(); got != 50 {
		t.Fatalf("Offset() = %d, want 50", got)
	}
	first := models.PaginationParams{Page: 1, Limit: 20}
	if got := first.Offset(); got != 0 {
		t.Fatalf("Offset() = %d, want 0 for the first page", got)
	}
}

func TestNewPagination(t *testing.T) {
	params := models.PaginationParams{Page: 2, Limit: 20}

	p := models.NewPagination(params, 45)
	if p.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3 (ceil of 45/20)", p.TotalPages)
	}
	if p.Page != 2 || p.Limit != 20 || p.Total != 45 {
		t.Fatalf("unexpected envelope: %+v", p)
	}

	empty := models.NewPagination(params, 0)
	if empty.TotalPages != 0 {
		t.Fatalf("TotalPages = %d, want 0 for an empty result", empty.TotalPages)
	}

	exact := models.NewPagination(params, 40)
	if exact.TotalPages != 2 {
		t.Fatalf("TotalPages = %d, want 2 for an exact multiple", exact.TotalPages)
	}
}
