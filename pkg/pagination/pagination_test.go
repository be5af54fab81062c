package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?limit=50&offset=10")
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_Clamping(t *testing.T) {
	tests := []struct {
		target     string
		wantLimit  int
		wantOffset int
	}{
		{"/?limit=100000", MaxLimit, 0},
		{"/?limit=-5", DefaultLimit, 0},
		{"/?limit=abc&offset=xyz", DefaultLimit, 0},
		{"/?offset=-10", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := paramsFor(tt.target)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%s: expected %d/%d, got %d/%d", tt.target, tt.wantLimit, tt.wantOffset, p.Limit, p.Offset)
		}
	}
}

func TestNewResponse(t *testing.T) {
	p := Params{Limit: 10, Offset: 20}

	r := NewResponse([]string{"a"}, p, true)
	if !r.HasMore {
		t.Error("expected HasMore")
	}
	if r.NextOffset == nil || *r.NextOffset != 30 {
		t.Errorf("expected next offset 30, got %v", r.NextOffset)
	}

	r = NewResponse([]string{"a"}, p, false)
	if r.NextOffset != nil {
		t.Errorf("expected no next offset on last page, got %d", *r.NextOffset)
	}
	if r.Limit != 10 || r.Offset != 20 {
		t.Errorf("expected limit 10 offset 20, got %d %d", r.Limit, r.Offset)
	}
}

func TestParams_FetchLimit(t *testing.T) {
	if got := (Params{Limit: 20}).FetchLimit(); got != 21 {
		t.Errorf("expected 21, got %d", got)
	}
}

func TestParams_HasPrevious(t *testing.T) {
	if (Params{Limit: 10}).HasPrevious() {
		t.Error("expected no previous page at offset 0")
	}
	if !(Params{Limit: 10, Offset: 10}).HasPrevious() {
		t.Error("expected previous page at offset 10")
	}
}
