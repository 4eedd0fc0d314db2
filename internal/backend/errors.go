package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrUnauthorized       = errors.New("backend unauthorized")
	ErrNotFound           = errors.New("backend resource not found")
	ErrTimeout            = errors.New("backend request timed out")
	ErrNetwork            = errors.New("backend unreachable")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend api error: %s", e.Status)
	}
	return fmt.Sprintf("backend api error: %s: %s", e.Status, e.Message)
}

// Message returns the operator-facing text carried by err, or fallback when
// the backend did not provide one.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func apiErrorFromResponse(resp *resty.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
	}
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Message = firstNonEmpty(body.Message, body.Error)
	} else {
		apiErr.Message = strings.TrimSpace(resp.String())
	}
	if apiErr.Status == "" {
		apiErr.Status = http.StatusText(apiErr.StatusCode)
	}
	return apiErr
}

func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
