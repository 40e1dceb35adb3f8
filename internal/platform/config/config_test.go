package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("unexpected default address: %s", cfg.HTTPAddress)
	}
	if len(cfg.CreationWeekdays) != 1 || cfg.CreationWeekdays[0] != time.Sunday {
		t.Fatalf("unexpected default creation weekdays: %v", cfg.CreationWeekdays)
	}
	if cfg.CycleStart != time.Monday || cfg.CycleDays != 6 {
		t.Fatalf("unexpected default cycle: start=%v days=%d", cfg.CycleStart, cfg.CycleDays)
	}
	if cfg.CandidateCount != 5 {
		t.Fatalf("unexpected default candidate count: %d", cfg.CandidateCount)
	}
}

func TestLoadParsesWeekdayOverrides(t *testing.T) {
	t.Setenv("VOTE_CREATION_WEEKDAYS", "sunday, Thursday")
	t.Setenv("VOTE_CYCLE_START", "tuesday")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []time.Weekday{time.Sunday, time.Thursday}
	if len(cfg.CreationWeekdays) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.CreationWeekdays)
	}
	for i, day := range want {
		if cfg.CreationWeekdays[i] != day {
			t.Fatalf("expected %v, got %v", want, cfg.CreationWeekdays)
		}
	}
	if cfg.CycleStart != time.Tuesday {
		t.Fatalf("expected Tuesday, got %v", cfg.CycleStart)
	}
}

func TestLoadRejectsInvalidWeekday(t *testing.T) {
	t.Setenv("VOTE_CREATION_WEEKDAYS", "Funday")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown weekday")
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{
		PostgresUser:     "app",
		PostgresPassword: "secret",
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresDB:       "cineclube",
		PostgresSSLMode:  "disable",
	}

	want := "postgres://app:secret@db:5432/cineclube?sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
