package config

import (
	"errors"
	"os"
)

type Config struct {
	Port             string
	TwilioAccountSid string
	TwilioAuthToken  string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8081"),
		TwilioAccountSid: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
	}
	if cfg.TwilioAccountSid == "" || cfg.TwilioAuthToken == "" {
		return nil, errors.New("missing Twilio credentials: set TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
