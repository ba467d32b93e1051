package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertIntervalToBybit(t *testing.T) {
	valid := map[string]string{
		"1m":  "1",
		"5m":  "5",
		"15m": "15",
		"1h":  "60",
		"4h":  "240",
		"12h": "720",
		"1d":  "D",
		"1w":  "W",
	}
	for input, expected := range valid {
		got, err := convertIntervalToBybit(input)
		require.NoError(t, err, "interval %s", input)
		assert.Equal(t, expected, got, "interval %s", input)
	}

	for _, input := range []string{"", "1", "m", "1x", "xh"} {
		_, err := convertIntervalToBybit(input)
		assert.Error(t, err, "interval %q should be rejected", input)
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("1672531200000")
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1672531200000), got)

	for _, input := range []string{"", "abc"} {
		_, err := parseTimestamp(input)
		assert.Error(t, err, "timestamp %q should be rejected", input)
	}
}
