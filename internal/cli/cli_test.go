package cli

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/usecase"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "3m5s", formatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h15m", formatDuration(2*time.Hour+15*time.Minute))
}

func TestPrintReply(t *testing.T) {
	var buf bytes.Buffer
	printReply(&buf, usecase.ChatReply{Text: "Hello", ResponseID: "resp_9"})
	assert.Equal(t, "Hello\n\nresponse_id: resp_9\n", buf.String())

	buf.Reset()
	printReply(&buf, usecase.ChatReply{Text: "Error: 500 - down"})
	assert.Equal(t, "Error: 500 - down\n\nresponse_id: \n", buf.String())
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"ingest": false, "chat": false, "search": false, "tables": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		assert.True(t, found, name)
	}

	var subs []string
	for _, c := range ingestCmd.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"file", "folder", "web"}, subs)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []searchResult{{Filename: "a.pdf", Score: 0.5}}))
	assert.Contains(t, buf.String(), `"filename": "a.pdf"`)

	buf.Reset()
	err := writeJSON(&buf, []searchResult{{Score: math.NaN()}})
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}
