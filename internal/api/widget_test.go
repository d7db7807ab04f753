package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/widget"
)

type fakeWidgetService struct {
	settings *widget.Settings
	err      error
}

func (f *fakeWidgetService) Get(_ context.Context, tenantID uuid.UUID) (*widget.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.settings
	s.TenantID = tenantID
	return &s, nil
}

func (f *fakeWidgetService) Update(_ context.Context, tenantID uuid.UUID, u widget.Update) (*widget.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.settings
	s.TenantID = tenantID
	if u.Color != nil {
		s.Color = *u.Color
	}
	return &s, nil
}

func (f *fakeWidgetService) Public(_ context.Context, _ uuid.UUID) (*widget.PublicSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := f.settings.Public()
	return &p, nil
}

type fakeTenantChecker struct {
	known map[uuid.UUID]bool
}

func (f *fakeTenantChecker) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.known[id], nil
}

func testSettings() *widget.Settings {
	return &widget.Settings{
		Color:        "#0066FF",
		Position:     "bottom-right",
		WelcomeText:  "Hi!",
		ShowBranding: true,
		AI:           widget.AIConfig{Model: "internal-model-name"},
	}
}

func TestWidgetPublic(t *testing.T) {
	tenantID := uuid.New()
	checker := &fakeTenantChecker{known: map[uuid.UUID]bool{tenantID: true}}
	h := NewWidgetHandler(&fakeWidgetService{settings: testSettings()}, checker, "https://chat.example.com", log.NewNop())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, func(next http.Handler) http.Handler { return next })

	t.Run("known tenant, no auth needed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widget/public/"+tenantID.String(), nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("public endpoint CORS = %q, want *", got)
		}
		if strings.Contains(rec.Body.String(), "internal-model-name") {
			t.Error("AI config leaked through public endpoint")
		}
	})

	t.Run("unknown tenant", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widget/public/"+uuid.NewString(), nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed tenant id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widget/public/nope", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestWidgetEmbed(t *testing.T) {
	tenantID := uuid.New()
	h := NewWidgetHandler(&fakeWidgetService{settings: testSettings()}, &fakeTenantChecker{}, "https://chat.example.com", log.NewNop())

	rec := serveAuthed(t, h, tenantID, http.MethodGet, "/api/v1/widget/embed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, tenantID.String()) {
		t.Error("embed code missing tenant id")
	}
	if !strings.Contains(body, "https://chat.example.com/widget.js") {
		t.Errorf("embed code missing script URL: %s", body)
	}
}

func TestWidgetUpdate(t *testing.T) {
	tenantID := uuid.New()
	h := NewWidgetHandler(&fakeWidgetService{settings: testSettings()}, &fakeTenantChecker{}, "https://chat.example.com", log.NewNop())

	rec := serveAuthed(t, h, tenantID, http.MethodPut, "/api/v1/widget", `{"color":"#FF0000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "#FF0000") {
		t.Error("updated color missing from response")
	}
}
