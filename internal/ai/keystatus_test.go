package ai

import (
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want KeyStatus
	}{
		{"nil", nil, StatusHealthy},
		{"rate limited", &APIError{StatusCode: 429, Body: "slow down"}, StatusThrottled},
		{"quota in body", &APIError{StatusCode: 400, Body: "quota exceeded for project"}, StatusThrottled},
		{"unauthorized", &APIError{StatusCode: 401, Body: "nope"}, StatusInvalid},
		{"forbidden", &APIError{StatusCode: 403, Body: "nope"}, StatusInvalid},
		{"bad api key in body", &APIError{StatusCode: 400, Body: "API key not valid"}, StatusInvalid},
		{"server error", &APIError{StatusCode: 500, Body: "boom"}, StatusError},
		{"connectivity", errors.New("send request: dial tcp: no route to host"), StatusError},
		{"429 in plain error", errors.New("unexpected status 429"), StatusThrottled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyError(tc.err); got != tc.want {
				t.Errorf("ClassifyError() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestKeyStatus_String(t *testing.T) {
	want := map[KeyStatus]string{
		StatusChecking:  "checking",
		StatusHealthy:   "healthy",
		StatusThrottled: "throttled",
		StatusInvalid:   "invalid",
		StatusError:     "error",
	}
	for status, s := range want {
		if status.String() != s {
			t.Errorf("String(%d) = %q, want %q", status, status.String(), s)
		}
	}
}
