package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// Recognized turn categories. Any other role is kept as-is and left unclassified.
const (
	RoleHuman = "human"
	RoleAgent = "agent"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 64 << 20

// Turn is one message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Category returns RoleHuman or RoleAgent for recognized roles (case-insensitive),
// or "" for anything else.
func (t Turn) Category() string {
	switch strings.ToLower(t.Role) {
	case RoleHuman:
		return RoleHuman
	case RoleAgent:
		return RoleAgent
	}
	return ""
}

// WordCount returns the number of whitespace-delimited words in the turn.
func (t Turn) WordCount() int {
	return len(strings.Fields(t.Content))
}

// Conversation is one timestamped exchange between a human and an agent.
type Conversation struct {
	ConversationID string
	Timestamp      time.Time
	Turns          []Turn
	Metadata       map[string]any
}

// Transcript renders the turns as "ROLE: content" lines.
func (c *Conversation) Transcript() string {
	lines := make([]string, 0, len(c.Turns))
	for _, t := range c.Turns {
		lines = append(lines, strings.ToUpper(t.Role)+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// MalformedRecordError reports an input line that could not be turned into a
// Conversation. Loading stops at the first one.
type MalformedRecordError struct {
	Line  int
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed record on line %d: field %q: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed record on line %d: %v", e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

type record struct {
	ConversationID *string        `json:"conversation_id"`
	Timestamp      *string        `json:"timestamp"`
	Turns          *[]rawTurn     `json:"turns"`
	Metadata       map[string]any `json:"metadata"`
}

type rawTurn struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// LoadConversations reads a JSONL file and returns its conversations sorted
// by timestamp, oldest first.
func LoadConversations(path string) ([]Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("conversation log not found: %s", path)
	}
	defer f.Close()

	return ReadConversations(f)
}

// ReadConversations parses JSONL records from r. Blank lines are skipped; any
// other line must be a complete record. Ties on timestamp keep input order.
func ReadConversations(r io.Reader) ([]Conversation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var conversations []Conversation
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		convo, err := parseRecord(lineNo, line)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, convo)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read conversation log: %w", err)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].Timestamp.Before(conversations[j].Timestamp)
	})
	return conversations, nil
}

func parseRecord(lineNo int, line string) (Conversation, error) {
	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return Conversation{}, &MalformedRecordError{Line: lineNo, Err: err}
	}

	missing := func(field string) error {
		return &MalformedRecordError{Line: lineNo, Field: field, Err: fmt.Errorf("required field is missing")}
	}
	if rec.ConversationID == nil {
		return Conversation{}, missing("conversation_id")
	}
	if rec.Timestamp == nil {
		return Conversation{}, missing("timestamp")
	}
	if rec.Turns == nil {
		return Conversation{}, missing("turns")
	}

	ts, err := ParseTimestamp(*rec.Timestamp)
	if err != nil {
		return Conversation{}, &MalformedRecordError{Line: lineNo, Field: "timestamp", Err: err}
	}

	turns := make([]Turn, 0, len(*rec.Turns))
	for i, rt := range *rec.Turns {
		if rt.Role == nil {
			return Conversation{}, missing(fmt.Sprintf("turns[%d].role", i))
		}
		if rt.Content == nil {
			return Conversation{}, missing(fmt.Sprintf("turns[%d].content", i))
		}
		turns = append(turns, Turn{Role: *rt.Role, Content: *rt.Content})
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return Conversation{
		ConversationID: *rec.ConversationID,
		Timestamp:      ts,
		Turns:          turns,
		Metadata:       metadata,
	}, nil
}
