// Package testhelpers provides shared test fixtures.
package testhelpers

import (
	"github.com/northpages/contentsync/internal/logger"
)

// NewTestLogger creates a logger suitable for testing (discards output).
func NewTestLogger() logger.Logger {
	return logger.NewNop()
}
