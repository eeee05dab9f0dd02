package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("weather fetched", "location", "Strangford Lough")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "weather fetched", line["msg"])
	assert.Equal(t, "Strangford Lough", line["location"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("expanding", "event_id", "evt-1")

	assert.Contains(t, buf.String(), "msg=expanding")
	assert.Contains(t, buf.String(), "event_id=evt-1")
}

func TestMetricsRegisterIndependently(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.WeatherCache))

	m.WeatherCache.WithLabelValues("hit").Inc()
	m.WeatherCache.WithLabelValues("hit").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "clubsite_weather_cache_total", families[0].GetName())
	assert.Equal(t, 2.0, families[0].GetMetric()[0].GetCounter().GetValue())

	// A second unregistered set must not collide with the first.
	other := prometheus.NewRegistry()
	require.NoError(t, other.Register(NewMetricsForTesting().WeatherCache))
	assert.Len(t, m.collectors(), 13)
}
