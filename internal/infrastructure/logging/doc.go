// Package logging provides structured logging for the BA console.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level names.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("gateway ready", "base_url", cfg.Backend.BaseURL)
//
// # Security
//
// Never log bearer tokens or passwords. Use RedactToken when a token
// must be correlated in logs.
package logging
