package mlerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindValidation, "Validation"},
		{KindUnavailable, "Unavailable"},
		{KindTransient, "Transient"},
		{KindFatal, "Fatal"},
		{KindMalformedEvent, "MalformedEvent"},
		{Kind(99), "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.String())
		})
	}
}

func TestValidationJoinsMessages(t *testing.T) {
	err := Validation("field a required", "field b out of range")
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "field a required; field b out of range", err.Message)
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("PrintTime")
	assert.Equal(t, KindUnavailable, err.Kind)
	assert.Contains(t, err.Error(), "PrintTime")
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindTransient, "redis get failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsDetectsKindThroughWrapping(t *testing.T) {
	inner := New(KindFatal, "predictor panicked")
	outer := fmt.Errorf("pipeline: %w", inner)

	assert.True(t, Is(inner, KindFatal))
	assert.True(t, Is(outer, KindFatal), "Is should unwrap through fmt.Errorf %w wrapping")
}
