package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "shared-key")
	t.Setenv("GOOGLE_BOOKS_API_KEY", "books-key")
	t.Setenv("PIPELINE_ITEM_DELAY", "250ms")
	t.Setenv("PIPELINE_BATCH_TIMEOUT", "120")
	t.Setenv("MIN_CONFIDENCE_TO_SAVE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sources.YouTubeAPIKey != "shared-key" {
		t.Errorf("youtube key should fall back to GOOGLE_API_KEY, got %q", cfg.Sources.YouTubeAPIKey)
	}
	if cfg.Sources.BooksAPIKey != "books-key" {
		t.Errorf("books key override ignored, got %q", cfg.Sources.BooksAPIKey)
	}
	if cfg.Pipeline.InterItemDelay != 250*time.Millisecond {
		t.Errorf("unexpected delay %s", cfg.Pipeline.InterItemDelay)
	}
	if cfg.Pipeline.BatchTimeout != 120*time.Second {
		t.Errorf("bare seconds not parsed, got %s", cfg.Pipeline.BatchTimeout)
	}
	if cfg.Pipeline.MinConfidenceToSave != 40 {
		t.Errorf("expected default gate 40, got %d", cfg.Pipeline.MinConfidenceToSave)
	}
	if cfg.Pipeline.MaxBatchSize != 20 {
		t.Errorf("expected batch cap 20, got %d", cfg.Pipeline.MaxBatchSize)
	}
}

func TestValidateRejectsAdapterTimeoutAboveDeadline(t *testing.T) {
	t.Setenv("SOURCE_TIMEOUT", "2m")
	t.Setenv("PIPELINE_SINGLE_TIMEOUT", "1m")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseNames(t *testing.T) {
	got := ParseNames("Omar Suleiman, Yasir Qadhi\n\nMufti Menk,")
	want := []string{"Omar Suleiman", "Yasir Qadhi", "Mufti Menk"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseNames = %v, want %v", got, want)
	}
}
