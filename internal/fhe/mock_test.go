package fhe

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldcare/internal/health"
	"shieldcare/pkg/platform/sentinel"
)

func TestEncrypt(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	tests := []struct {
		metric  health.Metric
		pattern string
	}{
		{health.MetricAge, `^0xAGE[0-9a-f]{60}$`},
		{health.MetricBloodPressure, `^0xBP[0-9a-f]{61}$`},
		{health.MetricBloodSugar, `^0xBS[0-9a-f]{61}$`},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			ct, err := m.Encrypt(ctx, 120, tt.metric)
			require.NoError(t, err)
			assert.Regexp(t, regexp.MustCompile(tt.pattern), string(ct))

			got, ok := MetricOf(ct)
			assert.True(t, ok)
			assert.Equal(t, tt.metric, got)
		})
	}

	t.Run("tokens are not repeated", func(t *testing.T) {
		a, _ := m.Encrypt(ctx, 65, health.MetricAge)
		b, _ := m.Encrypt(ctx, 65, health.MetricAge)
		assert.NotEqual(t, a, b)
	})

	t.Run("unknown metric is rejected", func(t *testing.T) {
		_, err := m.Encrypt(ctx, 80, health.Metric("weight"))
		assert.ErrorIs(t, err, sentinel.ErrMalformed)
	})
}

func TestCommit(t *testing.T) {
	var salt fr.Element
	salt.SetUint64(42)

	a, err := commit(salt, 65)
	require.NoError(t, err)
	b, err := commit(salt, 65)
	require.NoError(t, err)
	c, err := commit(salt, 66)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b, "same salt and value")
	assert.NotEqual(t, a, c, "different value")
}

func TestEncryptHonoursCancellation(t *testing.T) {
	m := NewMock(WithEncryptDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Encrypt(ctx, 65, health.MetricAge)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecrypt(t *testing.T) {
	m := NewMock(WithDecryptDelay(time.Millisecond))
	ctx := context.Background()

	got, err := m.Decrypt(ctx, "0xRESULTabc", true)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = m.Decrypt(ctx, "0xRESULTabc", false)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = m.Decrypt(ctx, "RESULT", true)
	assert.ErrorIs(t, err, sentinel.ErrMalformed)
}
