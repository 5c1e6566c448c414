/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Condition evaluator
	EvaluatorInterval time.Duration

	// Default automatic rules applied to new profiles (YAML, optional)
	SeedRulesPath string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	InstanceID    string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("QUIETD_ENV", "development"),
		HTTPBind:      getEnv("QUIETD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("QUIETD_HTTP_PORT", 8080),
		DBBackend:     DatabaseBackend(getEnv("QUIETD_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("QUIETD_DB_DSN", ""),
		JWTSigningKey: getEnv("QUIETD_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("QUIETD_METRICS_BIND", "127.0.0.1:9000"),

		EvaluatorInterval: time.Duration(getEnvInt("QUIETD_EVALUATOR_INTERVAL_SECONDS", 30)) * time.Second,

		SeedRulesPath: getEnv("QUIETD_SEED_RULES_PATH", ""),

		TracingEnabled:    getEnvBool("QUIETD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("QUIETD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("QUIETD_TRACING_SAMPLE_RATE", 1.0),

		RedisEnabled:  getEnvBool("QUIETD_REDIS_ENABLED", false),
		RedisAddr:     getEnv("QUIETD_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("QUIETD_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("QUIETD_REDIS_DB", 0),
		InstanceID:    getEnv("QUIETD_INSTANCE_ID", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("QUIETD_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("QUIETD_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if len(cfg.JWTSigningKey) < 32 {
			return nil, fmt.Errorf("QUIETD_JWT_SIGNING_KEY must be at least 32 bytes in production")
		}
	}

	if cfg.EvaluatorInterval < time.Second {
		return nil, fmt.Errorf("QUIETD_EVALUATOR_INTERVAL_SECONDS must be at least 1")
	}

	if cfg.InstanceID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "quietd"
		}
		cfg.InstanceID = hostname
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
