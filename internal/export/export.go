package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

// URLDetails serializes extracted URL summaries into the desired format.
// It returns the payload, its content type, and the file extension.
func URLDetails(details []capture.URLDetail, format string) ([]byte, string, string, error) {
	switch strings.ToLower(format) {
	case "json":
		buf, err := json.MarshalIndent(details, "", "  ")
		return buf, "application/json", "json", err
	case "csv":
		return exportCSV(details)
	default:
		return nil, "", "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportCSV(details []capture.URLDetail) ([]byte, string, string, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"method", "url", "response_type", "response_preview"}
	if err := writer.Write(headers); err != nil {
		return nil, "", "", err
	}

	for _, detail := range details {
		line := []string{detail.Method, detail.URL, detail.ResponseType, detail.ResponsePreview}
		if err := writer.Write(line); err != nil {
			return nil, "", "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", "", err
	}
	return buf.Bytes(), "text/csv", "csv", nil
}
