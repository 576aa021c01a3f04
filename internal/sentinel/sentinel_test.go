package sentinel

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  Error
		want string
	}{
		"simple message": {err: Error("port in use"), want: "port in use"},
		"empty message":  {err: Error(""), want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestError_ErrorsIs(t *testing.T) {
	t.Parallel()

	const errInvalid = Error("invalid port")
	const errInUse = Error("port in use")

	tests := map[string]struct {
		err    error
		target error
		want   bool
	}{
		"direct match": {
			err: errInvalid, target: errInvalid, want: true,
		},
		"wrapped once": {
			err: fmt.Errorf("check: %w", errInvalid), target: errInvalid, want: true,
		},
		"wrapped twice": {
			err: fmt.Errorf("start: %w", fmt.Errorf("check: %w", errInvalid)), target: errInvalid, want: true,
		},
		"joined": {
			err: errors.Join(errors.New("other"), errInUse), target: errInUse, want: true,
		},
		"different sentinel": {
			err: errInvalid, target: errInUse, want: false,
		},
		"errors.New with same text": {
			err: errors.New("invalid port"), target: errInvalid, want: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := errors.Is(tc.err, tc.target); got != tc.want {
				t.Errorf("errors.Is() = %v, want %v", got, tc.want)
			}
		})
	}
}
