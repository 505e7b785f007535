package astralis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFramerCarriesPartialLines(t *testing.T) {
	f := &lineFramer{}

	lines := f.feed([]byte("data: {\"a\":1}\ndata: {\"b\""))
	require.Equal(t, []string{`data: {"a":1}`}, lines)

	lines = f.feed([]byte(":2}\n"))
	require.Equal(t, []string{`data: {"b":2}`}, lines)

	lines = f.feed([]byte("tail without newline"))
	assert.Empty(t, lines)
}

func TestLineFramerMultipleLinesInOneChunk(t *testing.T) {
	f := &lineFramer{}

	lines := f.feed([]byte("one\ntwo\nthree\n"))
	assert.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantType string
	}{
		{"valid frame", `data: {"type":"thought","message":"hi"}`, true, "thought"},
		{"leading whitespace", `  data: {"type":"end"}`, true, "end"},
		{"no data prefix", `event: message`, false, ""},
		{"empty line", ``, false, ""},
		{"empty payload", `data:`, false, ""},
		{"malformed json", `data: {not json}`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, _, ok := parseFrame(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantType, frame.Type)
			}
		})
	}
}

func TestParseFrameReturnsPayloadForMalformedJSON(t *testing.T) {
	_, payload, ok := parseFrame(`data: {broken`)
	assert.False(t, ok)
	assert.Equal(t, `{broken`, payload)
}
