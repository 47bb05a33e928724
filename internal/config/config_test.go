package config

import (
	"testing"
)

func TestDiscoverKeysNumberedSiblings(t *testing.T) {
	environ := []string{
		"EXA_API_KEY=primary",
		"EXA_API_KEY_1=second",
		"EXA_API_KEY_2=third",
		"SERPER_API_KEY=only",
		"UNRELATED=x",
	}

	keys := discoverKeys(environ)

	exa := keys["exa"]
	if len(exa) != 3 {
		t.Fatalf("expected 3 exa keys, got %d", len(exa))
	}
	if exa[0] != "primary" || exa[1] != "second" || exa[2] != "third" {
		t.Errorf("exa keys out of order: %v", exa)
	}

	if len(keys["serper"]) != 1 {
		t.Errorf("expected 1 serper key, got %d", len(keys["serper"]))
	}
	if _, ok := keys["youtube"]; ok {
		t.Error("expected no youtube keys")
	}
}

func TestDiscoverKeysStopsAtGap(t *testing.T) {
	environ := []string{
		"JINA_API_KEY=a",
		"JINA_API_KEY_2=c", // gap at _1, must not be picked up
	}

	keys := discoverKeys(environ)
	if len(keys["jina"]) != 1 {
		t.Errorf("expected numbered discovery to stop at the gap, got %v", keys["jina"])
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Tuning.MinQualityScore != 60 {
		t.Errorf("expected default MIN_QUALITY_SCORE 60, got %d", cfg.Tuning.MinQualityScore)
	}
	if cfg.Tuning.MinViralScoreForCapture != 5.0 {
		t.Errorf("expected default MIN_VIRAL_SCORE_FOR_CAPTURE 5.0, got %f", cfg.Tuning.MinViralScoreForCapture)
	}
	if cfg.Tuning.KeyCooldown.Seconds() != 300 {
		t.Errorf("expected default cooldown 300s, got %v", cfg.Tuning.KeyCooldown)
	}
	if cfg.Features.EnableDeepStudy {
		t.Error("deep study must default to off")
	}
	if cfg.Paths.ScreenshotsRoot != cfg.Paths.SessionsRoot {
		t.Errorf("screenshots root should default to sessions root")
	}
}
