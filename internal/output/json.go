package output

import (
	"encoding/json"
	"fmt"
)

// JSONFormatter renders reports as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}

	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data) + "\n", nil
}
