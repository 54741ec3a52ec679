package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables. Unset or
// malformed variables leave the current value untouched.
//
// Recognized variables:
//
//	ENDPOINT_ADDR, DATABASE_DSN,
//	ACCESS_TOKEN_SECRET, REFRESH_TOKEN_SECRET,
//	ACCESS_TOKEN_EXPIRY, REFRESH_TOKEN_EXPIRY (Go duration, e.g. "15m", "240h"),
//	CORS_ORIGIN, COOKIE_SECURE, TEMP_UPLOAD_DIR,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
func parseEnv(cfg *Config) {
	setString(&cfg.EndpointAddr, "ENDPOINT_ADDR")
	setString(&cfg.DatabaseDSN, "DATABASE_DSN")
	setString(&cfg.AccessTokenSecret, "ACCESS_TOKEN_SECRET")
	setString(&cfg.RefreshTokenSecret, "REFRESH_TOKEN_SECRET")
	setDuration(&cfg.AccessTokenValidityDuration, "ACCESS_TOKEN_EXPIRY")
	setDuration(&cfg.RefreshTokenValidityDuration, "REFRESH_TOKEN_EXPIRY")
	setString(&cfg.CORSOrigin, "CORS_ORIGIN")
	setBool(&cfg.CookieSecure, "COOKIE_SECURE")
	setString(&cfg.TempUploadDir, "TEMP_UPLOAD_DIR")
	setString(&cfg.S3RootUser, "S3_ROOT_USER")
	setString(&cfg.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&cfg.S3Bucket, "S3_BUCKET")
	setString(&cfg.S3Region, "S3_REGION")
	setString(&cfg.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
