package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Providers Providers `mapstructure:"providers"`
	Features  Features  `mapstructure:"features"`
	Tuning    Tuning    `mapstructure:"tuning"`
	Paths     Paths     `mapstructure:"paths"`
	AI        AI        `mapstructure:"ai"`

	// MetricsAddr, when set, exposes the Prometheus counters on that
	// address during a run (e.g. ":9090").
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Providers holds the discovered credential sets per provider.
type Providers struct {
	Keys map[string][]string `mapstructure:"keys"`
}

// Features holds the boolean feature flags.
type Features struct {
	EnableScreenshots    bool `mapstructure:"enable_screenshots"`
	EnableImageDownloads bool `mapstructure:"enable_image_downloads"`
	EnableTrends         bool `mapstructure:"enable_trends"`
	EnableDeepStudy      bool `mapstructure:"enable_deep_study"`
	// DisableFallbacks makes provider failures yield empty results instead
	// of estimated placeholder records.
	DisableFallbacks bool `mapstructure:"disable_fallbacks"`
}

// Tuning holds the numeric knobs of a collection run.
type Tuning struct {
	MaxPages                int           `mapstructure:"max_pages"`
	DepthLevels             int           `mapstructure:"depth_levels"` // 1..3
	MaxImagesPerPlatform    int           `mapstructure:"max_images_per_platform"`
	MinImageBytes           int64         `mapstructure:"min_image_bytes"`
	MinQualityScore         int           `mapstructure:"min_quality_score"`
	MinViralScoreForCapture float64       `mapstructure:"min_viral_score_for_capture"`
	KeyCooldown             time.Duration `mapstructure:"key_cooldown"`
	StudyMinutes            int           `mapstructure:"study_minutes"`
	RunBudget               time.Duration `mapstructure:"run_budget"`
}

// Paths holds the storage roots.
type Paths struct {
	SessionsRoot    string `mapstructure:"sessions_root"`
	ImagesRoot      string `mapstructure:"images_root"`
	ScreenshotsRoot string `mapstructure:"screenshots_root"`
}

// AI holds the Gemini configuration used for query expansion and deep study.
type AI struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	Model        string `mapstructure:"model"`
}

// providerEnvNames maps registry provider names to their environment prefixes.
var providerEnvNames = map[string]string{
	"exa":        "EXA_API_KEY",
	"google_cse": "GOOGLE_CSE_KEY",
	"serper":     "SERPER_API_KEY",
	"jina":       "JINA_API_KEY",
	"youtube":    "YOUTUBE_API_KEY",
	"apify":      "APIFY_API_KEY",
	"twitter":    "TWITTER_BEARER_TOKEN",
	"trends":     "TRENDS_MCP_KEY",
}

// Load reads .env (when present), binds environment variables and returns the
// resolved configuration with defaults applied.
func Load() (*Config, error) {
	// Missing .env is fine; environment variables alone are enough.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENABLE_SCREENSHOTS", true)
	v.SetDefault("ENABLE_IMAGE_DOWNLOADS", true)
	v.SetDefault("ENABLE_TRENDS", true)
	v.SetDefault("ENABLE_DEEP_STUDY", false)
	v.SetDefault("DISABLE_FALLBACKS", false)
	v.SetDefault("MAX_PAGES", 20)
	v.SetDefault("DEPTH_LEVELS", 3)
	v.SetDefault("MAX_IMAGES_PER_PLATFORM", 5)
	v.SetDefault("MIN_IMAGE_BYTES", 10*1024)
	v.SetDefault("MIN_QUALITY_SCORE", 60)
	v.SetDefault("MIN_VIRAL_SCORE_FOR_CAPTURE", 5.0)
	v.SetDefault("KEY_COOLDOWN_SECONDS", 300)
	v.SetDefault("STUDY_MINUTES", 5)
	v.SetDefault("RUN_BUDGET_SECONDS", 600)
	v.SetDefault("SESSIONS_ROOT", "sessions")
	v.SetDefault("IMAGES_ROOT", "viral_images")
	v.SetDefault("SCREENSHOTS_ROOT", "")
	v.SetDefault("GEMINI_MODEL", "gemini-flash-lite-latest")
	v.SetDefault("METRICS_ADDR", "")

	depth := v.GetInt("DEPTH_LEVELS")
	if depth < 1 || depth > 3 {
		return nil, fmt.Errorf("DEPTH_LEVELS must be 1, 2 or 3, got %d", depth)
	}

	cfg := &Config{
		Providers: Providers{Keys: discoverKeys(os.Environ())},
		Features: Features{
			EnableScreenshots:    v.GetBool("ENABLE_SCREENSHOTS"),
			EnableImageDownloads: v.GetBool("ENABLE_IMAGE_DOWNLOADS"),
			EnableTrends:         v.GetBool("ENABLE_TRENDS"),
			EnableDeepStudy:      v.GetBool("ENABLE_DEEP_STUDY"),
			DisableFallbacks:     v.GetBool("DISABLE_FALLBACKS"),
		},
		Tuning: Tuning{
			MaxPages:                v.GetInt("MAX_PAGES"),
			DepthLevels:             depth,
			MaxImagesPerPlatform:    v.GetInt("MAX_IMAGES_PER_PLATFORM"),
			MinImageBytes:           v.GetInt64("MIN_IMAGE_BYTES"),
			MinQualityScore:         v.GetInt("MIN_QUALITY_SCORE"),
			MinViralScoreForCapture: v.GetFloat64("MIN_VIRAL_SCORE_FOR_CAPTURE"),
			KeyCooldown:             time.Duration(v.GetInt("KEY_COOLDOWN_SECONDS")) * time.Second,
			StudyMinutes:            v.GetInt("STUDY_MINUTES"),
			RunBudget:               time.Duration(v.GetInt("RUN_BUDGET_SECONDS")) * time.Second,
		},
		Paths: Paths{
			SessionsRoot:    v.GetString("SESSIONS_ROOT"),
			ImagesRoot:      v.GetString("IMAGES_ROOT"),
			ScreenshotsRoot: v.GetString("SCREENSHOTS_ROOT"),
		},
		AI: AI{
			GeminiAPIKey: firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_AI_API_KEY")),
			Model:        v.GetString("GEMINI_MODEL"),
		},
		MetricsAddr: v.GetString("METRICS_ADDR"),
	}

	if cfg.Paths.ScreenshotsRoot == "" {
		cfg.Paths.ScreenshotsRoot = cfg.Paths.SessionsRoot
	}

	return cfg, nil
}

// discoverKeys collects the primary credential plus numbered siblings for
// every known provider: PROVIDER_KEY, PROVIDER_KEY_1, PROVIDER_KEY_2, ...
// All discovered keys enter the same pool, in order.
func discoverKeys(environ []string) map[string][]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}

	keys := make(map[string][]string)
	for provider, base := range providerEnvNames {
		var found []string
		if val := env[base]; val != "" {
			found = append(found, val)
		}
		for i := 1; ; i++ {
			val := env[fmt.Sprintf("%s_%d", base, i)]
			if val == "" {
				break
			}
			found = append(found, val)
		}
		if len(found) > 0 {
			keys[provider] = found
		}
	}
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
