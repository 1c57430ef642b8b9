package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/school")
	t.Setenv("TZ", "Asia/Dhaka")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("ожидали :8080, получили %q", cfg.HTTPAddr)
	}
	if cfg.Raster.DPI != 300 || cfg.Raster.Settle != 300*time.Millisecond {
		t.Fatalf("неожиданные настройки растеризации: %+v", cfg.Raster)
	}
	if cfg.SMS.SuccessCode != "202" {
		t.Fatalf("ожидали код успеха 202, получили %q", cfg.SMS.SuccessCode)
	}
	if cfg.Location.String() != "Asia/Dhaka" {
		t.Fatalf("неожиданная зона %s", cfg.Location)
	}
}

func TestLoad_SharedDebounceNeedsRedis(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/school")
	t.Setenv("DEBOUNCE_SHARED", "true")
	t.Setenv("REDIS_ADDR", "")

	if _, err := Load(); err == nil {
		t.Fatal("ожидали ошибку без REDIS_ADDR")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/school")
	t.Setenv("PHOTO_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("ожидали ошибку разбора PHOTO_TIMEOUT")
	}
}

func TestLoad_SummaryClock(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/school")
	t.Setenv("SUMMARY_AT", "18:45")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SummaryHour != 18 || cfg.SummaryMinute != 45 {
		t.Fatalf("ожидали 18:45, получили %d:%d", cfg.SummaryHour, cfg.SummaryMinute)
	}

	t.Setenv("SUMMARY_AT", "25:00")
	if _, err := Load(); err == nil {
		t.Fatal("ожидали ошибку разбора SUMMARY_AT")
	}
}
