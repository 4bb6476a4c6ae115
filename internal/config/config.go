package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CLAIMGATE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CLAIMGATE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 7000
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func Neo4jURI() string {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		return "bolt://localhost:7687"
	}
	return uri
}

func Neo4jUser() string {
	u := os.Getenv("NEO4J_USER")
	if u == "" {
		return "neo4j"
	}
	return u
}

func Neo4jPassword() string {
	p := os.Getenv("NEO4J_PASSWORD")
	if p == "" {
		return "neo4j_password"
	}
	return p
}

// Neo4jDatabase returns the target database name. Empty means the
// server's default database.
func Neo4jDatabase() string {
	return os.Getenv("NEO4J_DATABASE")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set. Valid values: openai, anthropic,
// gemini, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMBaseURL points at any OpenAI-compatible endpoint. The default is a
// local LM Studio server.
func LLMBaseURL() string {
	u := os.Getenv("LLM_BASE_URL")
	if u == "" {
		return "http://localhost:1234/v1"
	}
	return u
}

func LLMAPIKey() string {
	k := os.Getenv("LLM_API_KEY")
	if k == "" {
		return "lm-studio"
	}
	return k
}

// LLMModel returns the configured model name. Empty means each
// provider's default.
func LLMModel() string {
	return os.Getenv("LLM_MODEL")
}

// AutoTrustThreshold is the minimum trust score for auto-merge.
func AutoTrustThreshold() float64 {
	v, err := strconv.ParseFloat(os.Getenv("TIER_AUTO_TRUST_THRESHOLD"), 64)
	if err != nil {
		return 0.85
	}
	return v
}

// MinEvidenceQuality is the per-item quality floor for auto-merge.
func MinEvidenceQuality() float64 {
	v, err := strconv.ParseFloat(os.Getenv("TIER_MIN_EVIDENCE_QUALITY"), 64)
	if err != nil {
		return 0.70
	}
	return v
}

// AutoMergePredicates returns the comma-separated predicate allowlist,
// or nil to use the service defaults.
func AutoMergePredicates() []string {
	return csvEnv("AUTO_MERGE_PREDICATES")
}

// FirstPartySources returns the comma-separated first-party source
// types, or nil to use the service defaults.
func FirstPartySources() []string {
	return csvEnv("FIRST_PARTY_SOURCES")
}

// AllowedReadRels returns the relation types the model's read queries
// may use, or nil to use the service defaults.
func AllowedReadRels() []string {
	return csvEnv("ALLOWED_READ_RELS")
}

func ScanInterval() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("SCAN_INTERVAL_SECONDS"))
	if err != nil || secs <= 0 {
		return 600 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// ScanEnabled reports whether the background gap scanner should run.
// Defaults to true.
func ScanEnabled() bool {
	v := os.Getenv("SCAN_ENABLED")
	if v == "" {
		return true
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return enabled
}

// GatewayAPIKey returns the shared secret for non-health endpoints.
// Empty means open access (dev mode).
func GatewayAPIKey() string {
	return os.Getenv("GATEWAY_API_KEY")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func csvEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
