package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParseDefaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Page != DefaultPage || p.Limit != DefaultLimit {
		t.Errorf("defaults = (%d, %d), want (%d, %d)", p.Page, p.Limit, DefaultPage, DefaultLimit)
	}
	if p.SortDir != "asc" {
		t.Errorf("SortDir = %s, want asc", p.SortDir)
	}
}

func TestParseClamping(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"negative page", "page=-3&limit=20", DefaultPage, 20},
		{"zero page", "page=0", DefaultPage, DefaultLimit},
		{"zero limit", "limit=0", DefaultPage, DefaultLimit},
		{"oversized limit", "limit=5000", DefaultPage, MaxLimit},
		{"garbage", "page=abc&limit=xyz", DefaultPage, DefaultLimit},
		{"valid", "page=3&limit=25", 3, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := paramsFor(t, tc.query)
			if p.Page != tc.wantPage || p.Limit != tc.wantLimit {
				t.Errorf("got (%d, %d), want (%d, %d)", p.Page, p.Limit, tc.wantPage, tc.wantLimit)
			}
			if p.Offset != (p.Page-1)*p.Limit {
				t.Errorf("Offset = %d, inconsistent with page/limit", p.Offset)
			}
		})
	}
}

func TestParseSortDirection(t *testing.T) {
	if p := paramsFor(t, "sortDirection=desc"); p.SortDir != "desc" {
		t.Errorf("SortDir = %s, want desc", p.SortDir)
	}
	if p := paramsFor(t, "sortDirection=sideways"); p.SortDir != "asc" {
		t.Errorf("invalid direction must fall back to asc, got %s", p.SortDir)
	}
}

func TestNewMetaTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 10, 10},
		{100, 10, 10},
		{101, 10, 11},
	}
	for _, tc := range cases {
		got := NewMeta(1, tc.limit, tc.total).TotalPages
		if got != tc.want {
			t.Errorf("NewMeta(total=%d, limit=%d).TotalPages = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestNewResultNeverNilData(t *testing.T) {
	res := NewResult[string](nil, 1, 10, 0)
	if res.Data == nil {
		t.Error("Data must serialize as [], not null")
	}
	if res.Pagination.Total != 0 || res.Pagination.TotalPages != 0 {
		t.Errorf("meta = %+v", res.Pagination)
	}
}
