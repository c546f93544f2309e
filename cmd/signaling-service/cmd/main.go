package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/beamdrop/services/backend/cmd/signaling-service/internal/config"
	"github.com/beamdrop/services/backend/cmd/signaling-service/internal/handlers"
	"github.com/beamdrop/services/backend/cmd/signaling-service/internal/models"
	"github.com/beamdrop/services/backend/internal/metrics"
	"github.com/beamdrop/services/backend/internal/ratelimit"
)

// newRouter assembles the HTTP surface: the websocket entry point plus the
// read-only status endpoints.
func newRouter(registry *models.Registry, limiter *ratelimit.Limiter) http.Handler {
	messageHandler := handlers.NewMessageHandler(registry)

	r := mux.NewRouter()
	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.HandleFunc("/room-status", roomStatus(registry)).Methods(http.MethodGet)
	r.HandleFunc("/debug", debugInfo(registry)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", handlers.ServeWs(messageHandler, limiter))

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// roomStatus mirrors the check-room message over plain HTTP so the page can
// probe a room before opening a websocket.
func roomStatus(registry *models.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room_id")
		info, ok := registry.CheckRoom(roomID)
		if !ok {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	}
}

func debugInfo(registry *models.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := make(map[string]interface{})
		for _, room := range registry.GetAllRooms() {
			info[room.ID] = map[string]interface{}{
				"members":   room.MemberCount(),
				"protected": room.Protected,
				"age":       time.Since(room.CreatedAt).String(),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	}
}

func main() {
	// Local .env is a dev convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[ERROR] Failed to load config: %v", err)
	}

	registry := models.NewRegistry()
	limiter := ratelimit.NewLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)

	done := make(chan struct{})
	defer close(done)
	go limiter.RunSweeper(ratelimit.DefaultSweepInterval, done)
	go registry.RunSweeper(cfg.RoomSweepInterval, cfg.RoomTTL, done)

	router := newRouter(registry, limiter)

	log.Printf("[INFO] Registered endpoints: /health, /room-status, /debug, /metrics, /ws")
	log.Printf("[INFO] Signaling service started on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
