package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LLM_PROVIDER", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "groq" {
		t.Fatalf("expected default llm provider groq, got %s", cfg.LLMProvider)
	}
	if cfg.BookingHorizonDays != 90 {
		t.Fatalf("expected default booking horizon 90, got %d", cfg.BookingHorizonDays)
	}
	if cfg.SlotGranularity != 30*time.Minute {
		t.Fatalf("expected default slot granularity, got %s", cfg.SlotGranularity)
	}
	if cfg.OpenHour != 8 || cfg.CloseHour != 18 {
		t.Fatalf("expected default clinic hours 8-18, got %d-%d", cfg.OpenHour, cfg.CloseHour)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("SLOT_GRANULARITY", "15m")
	t.Setenv("BOOKING_HORIZON_DAYS", "30")
	t.Setenv("CHAT_RATE_PER_SECOND", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected lowercased llm provider, got %s", cfg.LLMProvider)
	}
	if cfg.SlotGranularity != 15*time.Minute {
		t.Fatalf("expected slot granularity override, got %s", cfg.SlotGranularity)
	}
	if cfg.BookingHorizonDays != 30 {
		t.Fatalf("expected horizon override, got %d", cfg.BookingHorizonDays)
	}
	if cfg.ChatRatePerSecond != 2.5 {
		t.Fatalf("expected rate override, got %f", cfg.ChatRatePerSecond)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("expected CORS origins parsed, got %v", cfg.CORSAllowedOrigins)
	}
}
