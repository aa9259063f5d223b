package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	qe, ok := err.(*QAError)
	if !ok {
		// Wrap standard error
		qe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", qe.Message))

	if qe.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", qe.Suggestion))
	}

	sb.WriteString(fmt.Sprintf("  Code: %s\n", qe.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	qe, ok := err.(*QAError)
	if !ok {
		qe = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       qe.Code,
		Message:    qe.Message,
		Category:   string(qe.Category),
		Severity:   string(qe.Severity),
		Details:    qe.Details,
		Suggestion: qe.Suggestion,
		Retryable:  qe.Retryable,
	}

	if qe.Cause != nil {
		je.Cause = qe.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	qe, ok := err.(*QAError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": qe.Code,
		"message":    qe.Message,
		"category":   string(qe.Category),
		"severity":   string(qe.Severity),
		"retryable":  qe.Retryable,
	}

	if qe.Cause != nil {
		result["cause"] = qe.Cause.Error()
	}

	if qe.Suggestion != "" {
		result["suggestion"] = qe.Suggestion
	}

	for k, v := range qe.Details {
		result["detail_"+k] = v
	}

	return result
}
