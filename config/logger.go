package config

import "go.uber.org/zap"

// NewLogger returns a development logger for local runs and a JSON
// production logger everywhere else.
func NewLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "development" || env == "test" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
