package promptcraft

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies upstream failures for display and recovery.
type ErrorKind string

const (
	KindNetwork      ErrorKind = "network"
	KindUnauthorized ErrorKind = "unauthorized"
	KindValidation   ErrorKind = "validation"
	KindServer       ErrorKind = "server"
	KindDecode       ErrorKind = "decode"
)

// APIError describes a failed call to the PromptCraft backend.
type APIError struct {
	Kind      ErrorKind
	Status    int
	ErrorType string
	Detail    string
	Endpoint  string
	Err       error
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("promptcraft %s: %s (%d): %s", e.Endpoint, e.Kind, e.Status, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("promptcraft %s: %s: %v", e.Endpoint, e.Kind, e.Err)
	default:
		return fmt.Sprintf("promptcraft %s: %s (%d)", e.Endpoint, e.Kind, e.Status)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

// ErrorMessage converts err into a display string: the server-provided
// detail when there is one, otherwise fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail
	}
	return fallback
}

// StatusFor maps an upstream failure to the status the portal should answer with.
func StatusFor(err error) int {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

type errorBody struct {
	ErrorType string          `json:"error_type"`
	Detail    json.RawMessage `json:"detail"`
}

func newStatusError(endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{Endpoint: endpoint, Status: status}
	switch {
	case status == http.StatusUnauthorized:
		apiErr.Kind = KindUnauthorized
	case status >= 500:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindValidation
	}

	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		apiErr.ErrorType = parsed.ErrorType
		apiErr.Detail = detailString(parsed.Detail)
	}
	return apiErr
}

// detailString flattens FastAPI-style detail values: a plain string, or a
// list of validation issues each carrying a msg.
func detailString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var issues []struct {
		Msg string        `json:"msg"`
		Loc []interface{} `json:"loc"`
	}
	if err := json.Unmarshal(raw, &issues); err == nil && len(issues) > 0 {
		messages := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg == "" {
				continue
			}
			if field := issueField(issue.Loc); field != "" {
				messages = append(messages, fmt.Sprintf("%s: %s", field, issue.Msg))
				continue
			}
			messages = append(messages, issue.Msg)
		}
		return strings.Join(messages, "; ")
	}

	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

func issueField(loc []interface{}) string {
	if len(loc) == 0 {
		return ""
	}
	if name, ok := loc[len(loc)-1].(string); ok {
		return name
	}
	return ""
}
