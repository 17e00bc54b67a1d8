package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

func GetJWTSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// GetJWTExpiry returns the configured token lifetime. Defaults to 7 days.
func GetJWTExpiry() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("JWT_EXPIRES_HOURS"))
	if err != nil || hours <= 0 {
		hours = 168
	}
	return time.Duration(hours) * time.Hour
}

func GetFrontendURL() string {
	url := os.Getenv("FRONTEND_URL")
	if url == "" {
		url = "http://localhost:3000"
	}
	return strings.TrimSuffix(url, "/")
}

// GetAllowedOrigins returns the exact-match CORS origins from env.
// Wildcard deployment-host suffixes are handled by OriginAllowed.
func GetAllowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return []string{GetFrontendURL()}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// OriginAllowed checks an Origin header value against the configured
// exact-match list plus the two known deployment-host suffixes.
func OriginAllowed(origin string) bool {
	for _, allowed := range GetAllowedOrigins() {
		if origin == allowed {
			return true
		}
	}
	for _, suffix := range []string{".vercel.app", ".onrender.com"} {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// ResetTokenTTL is the validity window for a password reset token.
const ResetTokenTTL = 15 * time.Minute

const DATE_PARSE_FORMAT = "2006-01-02"
