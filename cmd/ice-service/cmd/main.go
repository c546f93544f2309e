package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/beamdrop/services/backend/cmd/ice-service/internal/config"
	"github.com/beamdrop/services/backend/pkg/handlers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	iceHandler := handlers.NewIceHandler(cfg.TwilioAccountSid, cfg.TwilioAuthToken)

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/ice-servers", iceHandler.GetIceServers).Methods(http.MethodGet)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	log.Printf("[INFO] Registered endpoints: /health, /api/ice-servers")
	log.Printf("[INFO] ICE service started on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}
