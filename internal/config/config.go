package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	Verbose  bool

	// Table backend for column jobs: sheets|sql
	Store           string
	SpreadsheetID   string
	CredentialsFile string

	DBDriver string
	DBDSN    string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt
	TokenTTL      time.Duration

	CORSOrigins []string

	// Grading defaults; requests may override per call.
	Mode                string
	Precision           int
	SuspiciousRunLength int
	Tolerance           string
	SuspicionRule       string
	TimeBudget          time.Duration
	Workers             int
	MaxBatch            int
}

func FromEnv() Config {
	return Config{
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		Verbose:  envBool("VERBOSE", false),

		Store:           envOr("GRADER_STORE", "sql"),
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret:    envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		TokenTTL:      envDuration("TOKEN_TTL", 8*time.Hour),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),

		Mode:                envOr("GRADER_MODE", "numeric"),
		Precision:           envInt("GRADER_PRECISION", 100),
		SuspiciousRunLength: envInt("GRADER_SUSPICIOUS_RUN", 6),
		Tolerance:           envOr("GRADER_TOLERANCE", "0"),
		SuspicionRule:       envOr("GRADER_SUSPICION_RULE", "repeated"),
		TimeBudget:          envDuration("GRADER_TIME_BUDGET", time.Second),
		Workers:             envInt("GRADER_WORKERS", 1),
		MaxBatch:            envInt("GRADER_MAX_BATCH", 10000),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
