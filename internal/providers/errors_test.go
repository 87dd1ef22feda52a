package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"studyrag/internal/util"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":    ErrorQuota,
		"429 rate":              ErrorRate,
		"context too long":      ErrorContext,
		"timeout":               ErrorTransient,
		"503 model unavailable": ErrorTransient,
		"rate limit reached":    ErrorRate,
		"bad request":           ErrorPermanent,
		"generate failed: 400":  ErrorPermanent,
	}
	for msg, want := range cases {
		require.Equal(t, want, ClassifyError(errors.New(msg)), msg)
	}
}

func TestClassifyErrorPrefersSentinels(t *testing.T) {
	require.Equal(t, ErrorRate, ClassifyError(fmt.Errorf("call: %w", util.ErrRateLimited)))
	require.Equal(t, ErrorTransient, ClassifyError(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	require.Equal(t, ErrorType(""), ClassifyError(nil))
}
