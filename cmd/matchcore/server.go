// cmd/matchcore/server.go
// Ops endpoints: health, Prometheus metrics and the realtime notification socket

package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/utils"
)

var startTime = time.Now()

func (a *app) opsRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", a.healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if a.hub != nil {
		router.HandleFunc("/ws", a.serveWS).Methods("GET")
	}

	return router
}

// healthCheck reports degraded when the database does not answer
func (a *app) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := a.db.PingContext(ctx); err != nil {
		log.Printf("Health check: database ping failed: %v", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
		"jobs":      a.scheduler.Jobs(),
	})
}

func (a *app) serveWS(w http.ResponseWriter, r *http.Request) {
	token, err := utils.TokenFromRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	claims, err := utils.ValidateJWT(token, a.cfg.JWTSecret)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	// The upgrader writes its own error response
	if err := a.hub.ServeWS(w, r, claims.UserID); err != nil {
		log.Printf("Failed to upgrade websocket for user %d: %v", claims.UserID, err)
	}
}
