package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"notice", NoticeLevel, false},
		{" error ", ErrorLevel, false},
		{"trace", InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStdLoggerFormatMessage(t *testing.T) {
	l := NewStdLogger(false, DebugLevel)
	assert.Equal(t, "[INFO]   [OSMO] hello", l.formatMessage(InfoLevel, chainIDMap[875], "hello"))
	assert.Equal(t, "[ERROR]  [ARB]  boom", l.formatMessage(ErrorLevel, chainIDMap[42161], "boom"))
	assert.Equal(t, "[DEBUG]  x", l.formatMessage(DebugLevel, chainIDMap[999], "x"))
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, InfoLevel)

	l.Debug("dropped")
	l.InfoWithChain(1853125230, "filled %s", "abc")
	l.Notice("heads up")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "filled abc", first["message"])
	assert.Equal(t, "neutron", first["chain"])
	assert.EqualValues(t, 1853125230, first["chain_id"])
	assert.Contains(t, first, "time")

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "notice", second["severity"])
	assert.NotContains(t, second, "chain")
}
