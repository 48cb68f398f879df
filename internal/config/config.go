package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/internal/research"
	"github.com/alexanxin/ideaspire-sub000/internal/similarity"
	"github.com/alexanxin/ideaspire-sub000/internal/state"
	"github.com/alexanxin/ideaspire-sub000/pkg/llm"
)

const configPathEnv = "RESEARCH_CONFIG"

// Config holds every setting the binaries read. Secrets only come from the
// environment; the YAML file tunes research and dedup behaviour.
type Config struct {
	Port        string `yaml:"-"`
	FrontendURL string `yaml:"-"`
	AdminToken  string `yaml:"-"`
	DevMode     bool   `yaml:"-"`
	LogLevel    string `yaml:"logLevel"`

	DatabaseURL string `yaml:"-"`
	RedisURL    string `yaml:"-"`
	StateFile   string `yaml:"stateFile"`

	Reddit  RedditConfig  `yaml:"reddit"`
	Twitter TwitterConfig `yaml:"twitter"`
	LLM     LLMConfig     `yaml:"llm"`
	Dedup   DedupConfig   `yaml:"dedup"`

	// Categories are the topics the researcher works through.
	Categories []string `yaml:"categories"`
}

type RedditConfig struct {
	ClientID     string          `yaml:"-"`
	ClientSecret string          `yaml:"-"`
	UserAgent    string          `yaml:"userAgent"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
	Collector    CollectorConfig `yaml:"collector"`
}

type TwitterConfig struct {
	BearerToken string          `yaml:"-"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Collector   CollectorConfig `yaml:"collector"`
}

// SchedulerConfig overrides the built-in rate budget when a field is set.
type SchedulerConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"maxRequests"`
	MinDelay    time.Duration `yaml:"minDelay"`
	MaxRetries  *int          `yaml:"maxRetries"`
}

type CollectorConfig struct {
	Queries        []string      `yaml:"queries"`
	Communities    []string      `yaml:"communities"`
	PostsPerQuery  int           `yaml:"postsPerQuery"`
	QueryDelay     time.Duration `yaml:"queryDelay"`
	CommunityDelay time.Duration `yaml:"communityDelay"`
}

type LLMConfig struct {
	Provider     string `yaml:"provider"`
	OpenAIKey    string `yaml:"-"`
	AnthropicKey string `yaml:"-"`
	MaxAttempts  int    `yaml:"maxAttempts"`
}

type DedupConfig struct {
	Threshold         float64 `yaml:"threshold"`
	TitleWeight       float64 `yaml:"titleWeight"`
	DescriptionWeight float64 `yaml:"descriptionWeight"`
}

// Load reads the optional YAML file named by RESEARCH_CONFIG and applies the
// environment on top.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			slog.Warn("cannot read config file, using defaults", "path", path, "error", err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				slog.Warn("cannot parse config file, using defaults", "path", path, "error", err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	c.FrontendURL = os.Getenv("FRONTEND_URL")
	c.AdminToken = os.Getenv("ADMIN_API_TOKEN")
	c.DevMode = envBool("DEV_MODE")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.RedisURL = os.Getenv("REDIS_URL")
	if v := os.Getenv("STATE_FILE"); v != "" {
		c.StateFile = v
	}

	c.Reddit.ClientID = os.Getenv("REDDIT_CLIENT_ID")
	c.Reddit.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		c.Reddit.UserAgent = v
	}
	c.Twitter.BearerToken = os.Getenv("TWITTER_BEARER_TOKEN")

	c.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func mergeConfig(base, override Config) Config {
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	if override.StateFile != "" {
		base.StateFile = override.StateFile
	}

	if override.Reddit.UserAgent != "" {
		base.Reddit.UserAgent = override.Reddit.UserAgent
	}
	base.Reddit.Scheduler = override.Reddit.Scheduler
	base.Reddit.Collector = override.Reddit.Collector
	base.Twitter.Scheduler = override.Twitter.Scheduler
	base.Twitter.Collector = override.Twitter.Collector

	if override.LLM.Provider != "" {
		base.LLM.Provider = strings.ToLower(override.LLM.Provider)
	}
	if override.LLM.MaxAttempts > 0 {
		base.LLM.MaxAttempts = override.LLM.MaxAttempts
	}

	if override.Dedup.Threshold > 0 {
		base.Dedup.Threshold = override.Dedup.Threshold
	}
	if override.Dedup.TitleWeight > 0 || override.Dedup.DescriptionWeight > 0 {
		base.Dedup.TitleWeight = override.Dedup.TitleWeight
		base.Dedup.DescriptionWeight = override.Dedup.DescriptionWeight
	}

	if len(override.Categories) > 0 {
		base.Categories = override.Categories
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Port:      "8080",
		LogLevel:  "info",
		StateFile: state.DefaultPath,
		Reddit: RedditConfig{
			UserAgent: "ideaspire-research/1.0",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			MaxAttempts: 3,
		},
		Dedup: DedupConfig{
			Threshold:         similarity.DefaultThreshold,
			TitleWeight:       similarity.DefaultWeights.Title,
			DescriptionWeight: similarity.DefaultWeights.Description,
		},
		Categories: []string{"technology", "health", "finance", "education", "productivity"},
	}
}

// Level parses LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c Config) Weights() similarity.Weights {
	return similarity.Weights{Title: c.Dedup.TitleWeight, Description: c.Dedup.DescriptionWeight}
}

func (c Config) RedditScheduler() ratelimit.Config {
	return c.Reddit.Scheduler.apply(ratelimit.RedditConfig())
}

func (c Config) TwitterScheduler() ratelimit.Config {
	return c.Twitter.Scheduler.apply(ratelimit.TwitterConfig())
}

func (s SchedulerConfig) apply(base ratelimit.Config) ratelimit.Config {
	if s.Window > 0 {
		base.Window = s.Window
	}
	if s.MaxRequests > 0 {
		base.MaxRequests = s.MaxRequests
	}
	if s.MinDelay > 0 {
		base.MinDelay = s.MinDelay
	}
	if s.MaxRetries != nil {
		base.MaxRetries = *s.MaxRetries
	}
	return base
}

func (c Config) RedditCollector() research.CollectorConfig {
	return c.Reddit.Collector.apply(research.DefaultRedditCollectorConfig())
}

func (c Config) TwitterCollector() research.CollectorConfig {
	return c.Twitter.Collector.apply(research.DefaultTwitterCollectorConfig())
}

func (o CollectorConfig) apply(base research.CollectorConfig) research.CollectorConfig {
	if len(o.Queries) > 0 {
		base.Queries = o.Queries
	}
	if len(o.Communities) > 0 {
		base.Communities = o.Communities
	}
	if o.PostsPerQuery > 0 {
		base.PostsPerQuery = o.PostsPerQuery
	}
	if o.QueryDelay > 0 {
		base.QueryDelay = o.QueryDelay
	}
	if o.CommunityDelay > 0 {
		base.CommunityDelay = o.CommunityDelay
	}
	return base
}

// Generator picks the configured LLM provider, falling back to whichever key
// is present. It returns nil when no key is set.
func (c Config) Generator(logger *slog.Logger) llm.Generator {
	var gen llm.Generator
	switch {
	case c.LLM.Provider == "anthropic" && c.LLM.AnthropicKey != "":
		gen = llm.NewAnthropicClient(c.LLM.AnthropicKey)
	case c.LLM.OpenAIKey != "":
		gen = llm.NewOpenAIClient(c.LLM.OpenAIKey)
	case c.LLM.AnthropicKey != "":
		gen = llm.NewAnthropicClient(c.LLM.AnthropicKey)
	default:
		return nil
	}
	return llm.NewRetrying(gen, c.LLM.MaxAttempts, logger)
}
