package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
//
// Missing reasoning-agent identifiers are not fatal: an unconfigured agent
// degrades to an identity pass-through, and a missing removal key skips
// background removal. Only the image model has no soft path, and even that is
// reported per call so the rest of the service keeps serving.
type Config struct {
	AppEnv     string
	Port       string
	StorageDir string
	PublicURL  string

	AgentBaseURL string
	AgentRegion  string
	AgentAPIKey  string

	ExtractAgentID   string
	ExtractAliasID   string
	InterpretAgentID string
	InterpretAliasID string
	PlannerAgentID   string
	PlannerAliasID   string
	ValidatorAgentID string
	ValidatorAliasID string

	ImageModelID string
	ImageBaseURL string
	ImageAPIKey  string

	RemoveBgKey string
	RemoveBgURL string

	AgentTimeout    time.Duration
	ImageTimeout    time.Duration
	RemoveBgTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	CORSAllowedOrigins []string
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		Port:       getEnv("PORT", "3000"),
		StorageDir: getEnv("STORAGE_DIR", "public/generated"),
		PublicURL:  getEnv("PUBLIC_URL", "http://localhost:3000"),

		AgentBaseURL: os.Getenv("AGENT_RUNTIME_BASE_URL"),
		AgentRegion:  getEnv("AGENT_RUNTIME_REGION", "us-east-1"),
		AgentAPIKey:  os.Getenv("AGENT_RUNTIME_API_KEY"),

		ExtractAgentID:   os.Getenv("EXTRACT_AGENT_ID"),
		ExtractAliasID:   os.Getenv("EXTRACT_AGENT_ALIAS_ID"),
		InterpretAgentID: os.Getenv("INTERPRET_AGENT_ID"),
		InterpretAliasID: os.Getenv("INTERPRET_AGENT_ALIAS_ID"),
		PlannerAgentID:   os.Getenv("PLANNER_AGENT_ID"),
		PlannerAliasID:   os.Getenv("PLANNER_AGENT_ALIAS_ID"),
		ValidatorAgentID: os.Getenv("VALIDATOR_AGENT_ID"),
		ValidatorAliasID: os.Getenv("VALIDATOR_AGENT_ALIAS_ID"),

		ImageModelID: getEnv("IMAGE_MODEL_ID", "amazon.titan-image-generator-v1"),
		ImageBaseURL: os.Getenv("IMAGE_API_BASE_URL"),
		ImageAPIKey:  os.Getenv("IMAGE_API_KEY"),

		RemoveBgKey: os.Getenv("REMOVEBG_API_KEY"),
		RemoveBgURL: getEnv("REMOVEBG_BASE_URL", "https://api.remove.bg/v1.0"),

		AgentTimeout:    time.Second * time.Duration(getEnvInt("AGENT_TIMEOUT_SECONDS", 60)),
		ImageTimeout:    time.Second * time.Duration(getEnvInt("IMAGE_TIMEOUT_SECONDS", 90)),
		RemoveBgTimeout: time.Second * time.Duration(getEnvInt("REMOVEBG_TIMEOUT_SECONDS", 30)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, p := range strings.Split(getEnv(key, fallback), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
