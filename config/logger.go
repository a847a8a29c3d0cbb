package config

import (
	"go.uber.org/zap"
)

// NewLogger returns a JSON production logger, or a console logger when APP_ENV=development.
func NewLogger() (*zap.Logger, error) {
	if GetEnv("APP_ENV", "production") == "development" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if GetEnvBool("DEBUG", false) {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
