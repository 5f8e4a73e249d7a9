// Package logger wraps zap construction for the orchestrator and its
// components.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for the named component. In development mode it
// uses a colorized console encoder; otherwise the production JSON config.
func New(component string, development bool) (*zap.Logger, error) {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.InitialFields = map[string]interface{}{
		"component": component,
	}

	return config.Build()
}

// NewTest builds a development logger for use in tests.
func NewTest() *zap.Logger {
	l, _ := zap.NewDevelopment()
	return l
}
