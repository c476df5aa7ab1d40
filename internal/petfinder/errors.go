package petfinder

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	ErrUnauthorized = errors.New("petfinder: unauthorized")
	ErrNotFound     = errors.New("petfinder: not found")
)

// APIError is a non-2xx answer from the catalog API.
type APIError struct {
	Endpoint string
	Status   int
	Title    string
	Detail   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("petfinder %s: status %d", e.Endpoint, e.Status)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// parseAPIError reads an application/problem+json body, or the OAuth error
// shape returned by the token endpoint. Unknown bodies keep only the status.
func parseAPIError(endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{Endpoint: endpoint, Status: status}
	if !gjson.ValidBytes(body) {
		return apiErr
	}

	res := gjson.GetManyBytes(body, "title", "detail", "error", "error_description")
	apiErr.Title = res[0].String()
	apiErr.Detail = res[1].String()
	if apiErr.Title == "" {
		apiErr.Title = res[2].String()
	}
	if apiErr.Detail == "" {
		apiErr.Detail = res[3].String()
	}
	return apiErr
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}
