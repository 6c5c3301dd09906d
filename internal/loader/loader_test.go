package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644))
	return path
}

func TestLoadConversationsSortsByTimestamp(t *testing.T) {
	path := writeLog(t,
		`{"conversation_id":"c3","timestamp":"2025-01-03T00:00:00Z","turns":[{"role":"human","content":"hi"}]}`,
		`{"conversation_id":"c1","timestamp":"2025-01-01T00:00:00Z","turns":[{"role":"human","content":"hi"}]}`,
		`{"conversation_id":"c2","timestamp":"2025-01-02T00:00:00+00:00","turns":[{"role":"human","content":"hi"}]}`,
	)

	convos, err := LoadConversations(path)
	require.NoError(t, err)
	require.Len(t, convos, 3)

	var ids []string
	for _, c := range convos {
		ids = append(ids, c.ConversationID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
}

func TestLoadConversationsStableOnTies(t *testing.T) {
	path := writeLog(t,
		`{"conversation_id":"b","timestamp":"2025-01-02T00:00:00Z","turns":[]}`,
		`{"conversation_id":"first-tie","timestamp":"2025-01-01T00:00:00Z","turns":[]}`,
		`{"conversation_id":"second-tie","timestamp":"2025-01-01T00:00:00+00:00","turns":[]}`,
		`{"conversation_id":"third-tie","timestamp":"2025-01-01T01:00:00+01:00","turns":[]}`,
	)

	convos, err := LoadConversations(path)
	require.NoError(t, err)

	var ids []string
	for _, c := range convos {
		ids = append(ids, c.ConversationID)
	}
	assert.Equal(t, []string{"first-tie", "second-tie", "third-tie", "b"}, ids)
}

func TestLoadConversationsSkipsBlankLines(t *testing.T) {
	path := writeLog(t,
		"",
		`{"conversation_id":"c1","timestamp":"2025-01-01T00:00:00Z","turns":[]}`,
		"   \t",
		"",
		`{"conversation_id":"c2","timestamp":"2025-01-02T00:00:00Z","turns":[]}`,
		"",
	)

	convos, err := LoadConversations(path)
	require.NoError(t, err)
	assert.Len(t, convos, 2)
}

func TestLoadConversationsDefaultsMetadata(t *testing.T) {
	path := writeLog(t,
		`{"conversation_id":"c1","timestamp":"2025-01-01T00:00:00Z","turns":[{"role":"Agent","content":"hello there"}]}`,
		`{"conversation_id":"c2","timestamp":"2025-01-02T00:00:00Z","turns":[],"metadata":{"channel":"web"}}`,
	)

	convos, err := LoadConversations(path)
	require.NoError(t, err)
	require.Len(t, convos, 2)

	assert.NotNil(t, convos[0].Metadata)
	assert.Empty(t, convos[0].Metadata)
	assert.Equal(t, "web", convos[1].Metadata["channel"])
	assert.Equal(t, "Agent", convos[0].Turns[0].Role, "role is kept verbatim")
}

func TestLoadConversationsMalformedJSON(t *testing.T) {
	path := writeLog(t,
		`{"conversation_id":"c1","timestamp":"2025-01-01T00:00:00Z","turns":[]}`,
		`{"conversation_id": "c2", "timestamp": `,
	)

	convos, err := LoadConversations(path)
	require.Error(t, err)
	assert.Nil(t, convos, "no partial result on failure")

	var mre *MalformedRecordError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, 2, mre.Line)
}

func TestLoadConversationsMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"no id", `{"timestamp":"2025-01-01T00:00:00Z","turns":[]}`, "conversation_id"},
		{"no timestamp", `{"conversation_id":"c1","turns":[]}`, "timestamp"},
		{"no turns", `{"conversation_id":"c1","timestamp":"2025-01-01T00:00:00Z"}`, "turns"},
		{"turn without role", `{"conversation_id":"c1","timestamp":"2025-01-01T00:00:00Z","turns":[{"content":"x"}]}`, "turns[0].role"},
		{"turn without content", `{"conversation_id":"c1","timestamp":"2025-01-01T00:00:00Z","turns":[{"role":"agent"}]}`, "turns[0].content"},
		{"bad timestamp", `{"conversation_id":"c1","timestamp":"yesterday","turns":[]}`, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConversations(strings.NewReader(tt.line))
			var mre *MalformedRecordError
			require.True(t, errors.As(err, &mre), "expected MalformedRecordError, got %v", err)
			assert.Equal(t, tt.field, mre.Field)
			assert.Equal(t, 1, mre.Line)
		})
	}
}

func TestLoadConversationsEmptyFile(t *testing.T) {
	convos, err := ReadConversations(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, convos)
}

func TestLoadConversationsMissingFile(t *testing.T) {
	_, err := LoadConversations(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-01T00:00:00Z", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T02:00:00+02:00", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T00:00:00.250Z", time.Date(2025, 1, 1, 0, 0, 0, 250_000_000, time.UTC)},
		{"2025-01-01 12:30:00", time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestFormatTimestampUsesNumericOffset(t *testing.T) {
	ts, err := ParseTimestamp("2025-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00+00:00", FormatTimestamp(ts))
}

func TestTurnCategory(t *testing.T) {
	assert.Equal(t, RoleAgent, Turn{Role: "AGENT"}.Category())
	assert.Equal(t, RoleHuman, Turn{Role: "Human"}.Category())
	assert.Equal(t, "", Turn{Role: "system"}.Category())
}

func TestTranscript(t *testing.T) {
	c := Conversation{Turns: []Turn{{Role: "human", Content: "help"}, {Role: "agent", Content: "sure"}}}
	assert.Equal(t, "HUMAN: help\nAGENT: sure", c.Transcript())
}
