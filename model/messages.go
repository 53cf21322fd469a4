package model

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CacheControl marks a content block as a prompt-cache breakpoint for
// backends that support caching the processed prefix.
type CacheControl struct {
	Type string `json:"type"` // "ephemeral"
}

// Ephemeral returns the standard ephemeral cache marker.
func Ephemeral() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// ContentBlock is one typed part of a message body.
type ContentBlock struct {
	Type         string        `json:"type"` // "text"
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// Content is an ordered sequence of content blocks. On the wire it encodes
// as a plain string when it is a single unannotated text block, and as a
// block list otherwise, matching what caching-aware backends expect.
type Content []ContentBlock

// Text builds Content holding a single text block.
func Text(s string) Content {
	return Content{{Type: "text", Text: s}}
}

// Join returns the concatenation of all text blocks.
func (c Content) Join() string {
	var sb strings.Builder
	for _, b := range c {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// MarshalJSON encodes a lone unannotated text block as a bare string.
func (c Content) MarshalJSON() ([]byte, error) {
	if len(c) == 1 && c[0].Type == "text" && c[0].CacheControl == nil {
		return json.Marshal(c[0].Text)
	}
	return json.Marshal([]ContentBlock(c))
}

// UnmarshalJSON accepts either a bare string or a block list.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Text(s)
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*c = Content(blocks)
	return nil
}

// Message is a single turn in a conversation. The role is fixed once the
// message is appended to a history; content is only ever rewritten by the
// cache-control annotation pass.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// TextContent returns the message body as plain text.
func (m Message) TextContent() string {
	return m.Content.Join()
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: Text(text)}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: Text(text)}
}

// AssistantMessage creates an assistant Message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: Text(text)}
}
