package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monastery360/agent/internal/actions"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestToolsTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listTools(&out, actions.New(), false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 13)
	assert.True(t, strings.HasPrefix(lines[0], "TOOL"))
	assert.Contains(t, lines[2], "book_tickets")
	assert.Contains(t, lines[2], "eventId")
}

func TestToolsJSON(t *testing.T) {
	out := execute(t, "", "tools", "--json")

	var defs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	require.Len(t, defs, 12)
	assert.Equal(t, "navigate_to_page", defs[0]["name"])
	assert.Contains(t, defs[0], "inputSchema")
}

func TestAskPrintsChatResponse(t *testing.T) {
	out := execute(t, "", "ask", "--session", "cli-1", "Which", "festivals", "are", "coming", "up")

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "events", resp["action"])
	assert.NotEmpty(t, resp["reply"])
	assert.NotNil(t, resp["target"])
}

func TestAskInteractive(t *testing.T) {
	out := execute(t, "hello\nbook 2 tickets for rumtek\nexit\n", "ask")

	assert.Contains(t, out, "Monastery360 assistant")
	assert.Contains(t, out, "[book -> ")
}
