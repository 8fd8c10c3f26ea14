package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/utils"
	"github.com/imadgeboyega/kiekky-matchcore/internal/config"
	"github.com/imadgeboyega/kiekky-matchcore/internal/notification"
	"github.com/imadgeboyega/kiekky-matchcore/internal/scheduler"
)

func TestServeWS_RequiresValidToken(t *testing.T) {
	a := &app{
		cfg:       &config.Config{JWTSecret: "secret"},
		hub:       notification.NewHub(),
		scheduler: scheduler.New(0),
	}
	defer a.hub.Close()
	router := a.opsRouter()

	refresh, err := utils.GenerateJWT(&utils.JWTClaims{
		UserID:    7,
		Type:      "refresh",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-jwt"},
		{"refresh token", refresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestOpsRouter_WithoutHub(t *testing.T) {
	a := &app{cfg: &config.Config{}, scheduler: scheduler.New(0)}
	router := a.opsRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected /ws to be absent without a hub, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics to be served, got %d", rec.Code)
	}
}
