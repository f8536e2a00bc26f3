package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(nil)

	if cfg.EliteEntryScore != 850 || cfg.EliteExitScore != 800 {
		t.Fatalf("mode thresholds: entry=%d exit=%d", cfg.EliteEntryScore, cfg.EliteExitScore)
	}
	if cfg.TargetActiveCount != 5 {
		t.Fatalf("target active count=%d, want 5", cfg.TargetActiveCount)
	}
	if cfg.ReplacementInterval != 5*24*time.Hour {
		t.Fatalf("replacement interval=%v, want 120h", cfg.ReplacementInterval)
	}
	if cfg.SkipDelay != 5*24*time.Hour {
		t.Fatalf("skip delay=%v, want 120h", cfg.SkipDelay)
	}
	if cfg.SiteWideCap != 15 {
		t.Fatalf("site-wide cap=%d, want 15", cfg.SiteWideCap)
	}
	if cfg.PlanInitialActive["free"] != 3 || cfg.PlanInitialActive["diy"] != 5 || cfg.PlanInitialActive["guest"] != 0 {
		t.Fatalf("plan seeds: %v", cfg.PlanInitialActive)
	}
	if cfg.PlanInitialActive["pro"] < 1000 {
		t.Fatalf("pro plan should be effectively uncapped, got %d", cfg.PlanInitialActive["pro"])
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MODE_ELITE_ENTRY_SCORE", "900")
	t.Setenv("TARGET_ACTIVE_COUNT", "7")
	t.Setenv("REPLACEMENT_INTERVAL_DAYS", "3")

	cfg := Load(nil)
	if cfg.EliteEntryScore != 900 {
		t.Fatalf("entry score=%d, want 900", cfg.EliteEntryScore)
	}
	if cfg.TargetActiveCount != 7 {
		t.Fatalf("target active count=%d, want 7", cfg.TargetActiveCount)
	}
	if cfg.ReplacementInterval != 3*24*time.Hour {
		t.Fatalf("replacement interval=%v, want 72h", cfg.ReplacementInterval)
	}
}

func TestLoadRuleTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := []byte("site_wide_keywords:\n  - cdn\n  - hreflang\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRuleTable(path)
	if err != nil {
		t.Fatalf("LoadRuleTable: %v", err)
	}
	if len(rules.SiteWideKeywords) != 2 || rules.SiteWideKeywords[0] != "cdn" {
		t.Fatalf("keywords not overridden: %v", rules.SiteWideKeywords)
	}
	// A file overriding only keywords keeps the default categories.
	def := DefaultRuleTable()
	if len(rules.SiteWideCategories) != len(def.SiteWideCategories) {
		t.Fatalf("categories should fall back to defaults, got %v", rules.SiteWideCategories)
	}
}

func TestLoadRuleTableMissingFile(t *testing.T) {
	if _, err := LoadRuleTable(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRuleTableMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("site_wide_keywords: {not a list"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRuleTable(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
