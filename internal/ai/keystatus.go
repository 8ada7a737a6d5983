package ai

import (
	"errors"
	"net/http"
	"strings"
)

// KeyStatus is the last known health of the gateway credential. It is derived
// on demand and never persisted.
type KeyStatus int

const (
	StatusChecking KeyStatus = iota
	StatusHealthy
	StatusThrottled
	StatusInvalid
	StatusError
)

func (s KeyStatus) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusHealthy:
		return "healthy"
	case StatusThrottled:
		return "throttled"
	case StatusInvalid:
		return "invalid"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ClassifyError maps a gateway call failure onto a KeyStatus. Rate limiting
// becomes throttled, credential rejection becomes invalid, everything else
// (connectivity included) becomes error. A nil error is healthy.
func ClassifyError(err error) KeyStatus {
	if err == nil {
		return StatusHealthy
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return StatusThrottled
		case http.StatusUnauthorized, http.StatusForbidden:
			return StatusInvalid
		}
		body := strings.ToLower(apiErr.Body)
		if strings.Contains(body, "rate limit") || strings.Contains(body, "quota") {
			return StatusThrottled
		}
		if strings.Contains(body, "api key") {
			return StatusInvalid
		}
		return StatusError
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return StatusThrottled
	}
	return StatusError
}
