package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// Config carries every tunable the lifecycle engine uses. Thresholds and the
// classifier rule table are explicit constructor inputs rather than
// package-level globals so tests and tenants can vary them.
type Config struct {
	HTTPPort string

	// Mode hysteresis on the 0-1000 total score.
	EliteEntryScore int
	EliteExitScore  int

	// Replacement cycle.
	TargetActiveCount   int
	ReplacementInterval time.Duration
	SkipDelay           time.Duration

	// Classifier.
	SiteWideCap       int
	PlanInitialActive map[string]int
	Rules             RuleTable

	// Notification bus.
	RedisAddr    string
	RedisChannel string

	// Background sweep (off by default; lazy check-on-read is primary).
	SweepEnabled  bool
	SweepInterval time.Duration
}

// RuleTable is the declarative site-wide classification table: a category
// match or a keyword hit in title/text makes a recommendation site-wide.
type RuleTable struct {
	SiteWideCategories []string `yaml:"site_wide_categories"`
	SiteWideKeywords   []string `yaml:"site_wide_keywords"`
}

func DefaultRuleTable() RuleTable {
	return RuleTable{
		SiteWideCategories: []string{
			"technical_seo",
			"site_architecture",
			"security",
			"structured_data",
		},
		SiteWideKeywords: []string{
			"sitemap",
			"robots.txt",
			"https",
			"ssl",
			"indexnow",
			"site-wide",
			"entire site",
			"all pages",
			"organization schema",
			"brand schema",
		},
	}
}

func Load(log *logger.Logger) Config {
	cfg := Config{
		HTTPPort:            getEnv("HTTP_PORT", "8080", log),
		EliteEntryScore:     getEnvAsInt("MODE_ELITE_ENTRY_SCORE", 850, log),
		EliteExitScore:      getEnvAsInt("MODE_ELITE_EXIT_SCORE", 800, log),
		TargetActiveCount:   getEnvAsInt("TARGET_ACTIVE_COUNT", 5, log),
		ReplacementInterval: time.Duration(getEnvAsInt("REPLACEMENT_INTERVAL_DAYS", 5, log)) * 24 * time.Hour,
		SkipDelay:           time.Duration(getEnvAsInt("SKIP_DELAY_DAYS", 5, log)) * 24 * time.Hour,
		SiteWideCap:         getEnvAsInt("SITE_WIDE_CAP", 15, log),
		PlanInitialActive: map[string]int{
			"free":  getEnvAsInt("PLAN_INITIAL_ACTIVE_FREE", 3, log),
			"diy":   getEnvAsInt("PLAN_INITIAL_ACTIVE_DIY", 5, log),
			"pro":   getEnvAsInt("PLAN_INITIAL_ACTIVE_PRO", 1_000_000, log),
			"guest": getEnvAsInt("PLAN_INITIAL_ACTIVE_GUEST", 0, log),
		},
		Rules:         DefaultRuleTable(),
		RedisAddr:     getEnv("REDIS_ADDR", "", log),
		RedisChannel:  getEnv("REDIS_CHANNEL", "mode_events", log),
		SweepEnabled:  getEnv("SWEEP_ENABLED", "false", log) == "true",
		SweepInterval: time.Duration(getEnvAsInt("SWEEP_INTERVAL_MINUTES", 60, log)) * time.Minute,
	}

	if path := getEnv("CLASSIFIER_RULES_FILE", "", log); path != "" {
		rules, err := LoadRuleTable(path)
		if err != nil {
			log.Warn("Failed to load classifier rule table, keeping defaults", "path", path, "error", err)
		} else {
			cfg.Rules = rules
		}
	}
	return cfg
}

// LoadRuleTable reads a YAML rule-table override. Empty sections fall back
// to the built-in defaults so a file can override just one list.
func LoadRuleTable(path string) (RuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleTable{}, fmt.Errorf("read rule table: %w", err)
	}
	var rules RuleTable
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return RuleTable{}, fmt.Errorf("parse rule table: %w", err)
	}
	def := DefaultRuleTable()
	if len(rules.SiteWideCategories) == 0 {
		rules.SiteWideCategories = def.SiteWideCategories
	}
	if len(rules.SiteWideKeywords) == 0 {
		rules.SiteWideKeywords = def.SiteWideKeywords
	}
	return rules, nil
}

func getEnv(key, defaultVal string, log *logger.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "env_var", key, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "env_var", key, "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}
