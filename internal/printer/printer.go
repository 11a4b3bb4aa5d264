package printer

import (
	"github.com/moksha-hub/metabrainz-har/internal/loader"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

// Printer renders extraction results for a single capture source.
type Printer interface {
	PrintDetails(source string, details []capture.URLDetail) error
	PrintPairs(source string, pairs map[string]loader.Pair) error
}

// New creates a Printer for the configured output mode.
func New(mode string, log logger.Logger) Printer {
	switch mode {
	case "json":
		return NewJSONPrinter(log)
	default:
		return NewConsolePrinter(log)
	}
}
