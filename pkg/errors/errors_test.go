package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrUpstreamConstruction,
				Message: "failed to build sender",
				Cause:   errors.New("underlying error"),
			},
			want: "upstream_construction: failed to build sender: underlying error",
		},
		{
			name: "error without cause",
			err:  NewMissingFieldError("hostname"),
			want: "missing_field: hostname is required",
		},
		{
			name: "invalid port",
			err:  NewInvalidPortError("tracingPort", 70000),
			want: "invalid_port: tracingPort 70000 is outside 1-65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := NewUpstreamConstructionError("failed to build span exporter", cause)

	assert.Same(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, NewMissingFieldError("service").Unwrap())
}

func TestTypePredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"missing field", NewMissingFieldError("hostname"), IsMissingField, true},
		{"missing field wrapped", fmt.Errorf("configure: %w", NewMissingFieldError("hostname")), IsMissingField, true},
		{"invalid port", NewInvalidPortError("port", 0), IsInvalidPort, true},
		{"invalid port is not missing field", NewInvalidPortError("port", 0), IsMissingField, false},
		{"invalid argument", NewInvalidArgumentError("bad protocol", nil), IsInvalidArgument, true},
		{"upstream", NewUpstreamConstructionError("x", errors.New("y")), IsUpstreamConstruction, true},
		{
			"upstream wrapping a registry error",
			NewUpstreamConstructionError("x", NewAlreadyRegisteredError("wavefront")),
			IsAlreadyRegistered,
			true,
		},
		{"already registered", NewAlreadyRegisteredError("wavefront"), IsAlreadyRegistered, true},
		{"plain error", errors.New("boom"), IsUpstreamConstruction, false},
		{"nil error", nil, IsMissingField, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}
