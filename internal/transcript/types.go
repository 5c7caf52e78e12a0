package transcript

import (
	"strconv"
	"strings"
)

// Entry type tags emitted by the transcript provider. Anything else is noise.
const (
	TypeLaunch  = "launch"
	TypeRequest = "request"
	TypeDebug   = "debug"
)

// asrMarker identifies debug lines produced by the speech recognizer.
const asrMarker = "ASR:"

// LogEntry is one event from a provider transcript. The payload shape depends
// on Type: request entries nest the user utterance, debug entries carry a
// free-text message.
type LogEntry struct {
	Type    string       `json:"type"`
	Payload EntryPayload `json:"payload"`
}

// EntryPayload holds the union of payload fields across entry types.
type EntryPayload struct {
	Message string         `json:"message,omitempty"`
	Payload *IntentPayload `json:"payload,omitempty"`
}

// IntentPayload is the nested payload of a request entry.
type IntentPayload struct {
	Query string `json:"query"`
}

// Query returns the user utterance of a request entry, or "" if absent.
func (e LogEntry) Query() string {
	if e.Payload.Payload == nil {
		return ""
	}
	return e.Payload.Payload.Query
}

// IsASRTrace reports whether a debug entry's message came from the recognizer.
func (e LogEntry) IsASRTrace() bool {
	return strings.Contains(e.Payload.Message, asrMarker)
}

// Conversation is one logical exchange: the user utterances and the matched
// recognizer traces accumulated between conversation boundaries.
type Conversation struct {
	Queries []string `json:"queries"`
	Traces  []string `json:"traces"`
}

// Valid reports whether the conversation carries both utterances and traces.
// Partial conversations are never surfaced to callers.
func (c Conversation) Valid() bool {
	return len(c.Queries) > 0 && len(c.Traces) > 0
}

// ProcessedData is the ordered set of valid conversations handed to the
// recommendation client.
type ProcessedData []Conversation

// Text renders the conversations as a plain-text block for prompt embedding.
func (d ProcessedData) Text() string {
	var sb strings.Builder
	for i, c := range d {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Conversation ")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(":\n")
		for _, q := range c.Queries {
			sb.WriteString("  user: ")
			sb.WriteString(q)
			sb.WriteString("\n")
		}
		for _, t := range c.Traces {
			sb.WriteString("  trace: ")
			sb.WriteString(t)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
