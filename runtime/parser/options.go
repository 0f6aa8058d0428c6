package parser

import "log/slog"

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// ParserConfig holds parser configuration
type ParserConfig struct {
	filename    string
	logger      *slog.Logger
	tokenLogger *slog.Logger
}

// WithFilename names the script in error messages
func WithFilename(name string) ParserOpt {
	return func(c *ParserConfig) {
		c.filename = name
	}
}

// WithLogger traces grammar rules at debug level
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// WithTokenLogger traces every scanned token at debug level
func WithTokenLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.tokenLogger = logger
	}
}
