package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioServer_RespondsLineByLine(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","method":"initialize","id":1}`,
		``,
		`{"jsonrpc":"2.0","method":"tools/list","id":2}`,
	}, "\n") + "\n"
	var out bytes.Buffer

	server := NewStdioServer(d, strings.NewReader(input), &out)
	require.NoError(t, server.Run(context.Background()))

	lines := nonEmptyLines(out.String())
	require.Len(t, lines, 2)

	var first, second Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, first.Error)
	assert.Nil(t, second.Error)
	assert.Equal(t, "1", string(first.ID))
	assert.Equal(t, "2", string(second.ID))
}

func TestStdioServer_ParseErrorLine(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	var out bytes.Buffer

	server := NewStdioServer(d, strings.NewReader("{bad\n"), &out)
	require.NoError(t, server.Run(context.Background()))

	lines := nonEmptyLines(out.String())
	require.Len(t, lines, 1)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}

func TestStdioServer_BatchLine(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	input := `[{"jsonrpc":"2.0","method":"initialize","id":1},{"jsonrpc":"2.0","method":"tools/list","id":2}]` + "\n"
	var out bytes.Buffer

	server := NewStdioServer(d, strings.NewReader(input), &out)
	require.NoError(t, server.Run(context.Background()))

	lines := nonEmptyLines(out.String())
	require.Len(t, lines, 1)
	var responses []Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &responses))
	assert.Len(t, responses, 2)
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
