package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient wrapper", NewTransientError(errors.New("503"), 503), true},
		{"wrapped transient", fmt.Errorf("append: %w", NewTransientError(errors.New("x"), 500)), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"dns failure message", errors.New("dial tcp: lookup x.it: no such host"), true},
		{"rate limit message", errors.New("googleapi: rate limit exceeded"), true},
		{"io timeout message", errors.New("read tcp: i/o timeout"), true},
		{"permanent", errors.New("invalid spreadsheet id"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		if IsTransientStatus(code) {
			t.Errorf("expected %d not to be transient", code)
		}
	}
}
