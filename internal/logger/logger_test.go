package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skzy2018/ai-kakeibo-app/internal/config"
)

func TestNewHonoursLevel(t *testing.T) {
	log := New(config.LogConfig{Level: "warn"})
	require.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log = New(config.LogConfig{Level: "nonsense", Pretty: true})
	require.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("collector", "visa").Msg("test message")

	out := buf.String()
	require.Contains(t, out, "test message")
	require.Contains(t, out, `"collector":"visa"`)
}

func TestContextRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("from ctx")
	require.NotZero(t, buf.Len())
}

func TestFromContextDefaultIsSilent(t *testing.T) {
	log := FromContext(context.Background())
	require.Equal(t, zerolog.Disabled, log.GetLevel())
}
