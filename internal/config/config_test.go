package config

import (
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "QUESTIONS_PATH", "SETTLE_OFFSET", "HOST_POLICY", "ROOM_CODE_LENGTH", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT"} {
		// Setenv registers the restore; Unsetenv clears it for this test.
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "")
	}
	if cfg.QuestionsPath != "questions.json" {
		t.Errorf("QuestionsPath = %q, want questions.json", cfg.QuestionsPath)
	}
	if cfg.SettleOffset != 800*time.Millisecond || cfg.GracePeriod != time.Second || cfg.DefaultTimeLimit != 15*time.Second {
		t.Errorf("timing = %v/%v/%v, want 800ms/1s/15s", cfg.SettleOffset, cfg.GracePeriod, cfg.DefaultTimeLimit)
	}
	if cfg.HostPolicy != "promote" || cfg.ReleaseBuzzerOnLeave {
		t.Errorf("policies = %q/%v, want promote/false", cfg.HostPolicy, cfg.ReleaseBuzzerOnLeave)
	}
	if cfg.RoomCodeLength != 6 {
		t.Errorf("RoomCodeLength = %d, want 6", cfg.RoomCodeLength)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
	if cfg.Level() != zerolog.InfoLevel {
		t.Errorf("Level() = %v, want info", cfg.Level())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/trivia")
	t.Setenv("SETTLE_OFFSET", "500ms")
	t.Setenv("HOST_POLICY", "keep")
	t.Setenv("RELEASE_BUZZER_ON_LEAVE", "true")
	t.Setenv("ROOM_CODE_LENGTH", "8")
	t.Setenv("ALLOWED_ORIGINS", "example.com,*.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/trivia" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.SettleOffset != 500*time.Millisecond {
		t.Errorf("SettleOffset = %v, want 500ms", cfg.SettleOffset)
	}
	if cfg.HostPolicy != "keep" || !cfg.ReleaseBuzzerOnLeave {
		t.Errorf("policies = %q/%v, want keep/true", cfg.HostPolicy, cfg.ReleaseBuzzerOnLeave)
	}
	if cfg.RoomCodeLength != 8 {
		t.Errorf("RoomCodeLength = %d, want 8", cfg.RoomCodeLength)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"example.com", "*.example.com"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Level() != zerolog.DebugLevel {
		t.Errorf("Level() = %v, want debug", cfg.Level())
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"SETTLE_OFFSET":      "soon",
		"DEFAULT_TIME_LIMIT": "0s",
		"HOST_POLICY":        "vote",
		"LOG_FORMAT":         "xml",
		"LOG_LEVEL":          "loud",
		"SEND_BUFFER":        "-1",
		"ROOM_CODE_LENGTH":   "3",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", key, val)
			}
		})
	}
}
