package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// APIError is an error answer from the backend. It is returned as is; Unwrap
// exposes the matching domain error, if any, for errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "user_already_exists" || e.Code == "email_exists" ||
		strings.Contains(strings.ToLower(e.Message), "already registered"):
		return domain.ErrUserExists
	case e.Code == "invalid_grant" || e.Code == "invalid_credentials":
		return domain.ErrInvalidCredentials
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return domain.ErrForbidden
	}
	return nil
}

// errorBody covers both the auth and rest error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	var code string
	if len(body.Code) > 0 && body.Code[0] == '"' {
		_ = json.Unmarshal(body.Code, &code)
	}
	apiErr.Code = firstNonEmpty(body.ErrorCode, code, body.Error)
	apiErr.Message = firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, http.StatusText(status))
	return apiErr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
