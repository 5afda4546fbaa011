package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldnotes/relay/internal/utils"
)

// Conversation is a durable, ordered sequence of messages under a stable
// identifier. The id is stable and unique for the file's lifetime,
// UpdatedAt never precedes CreatedAt, every mutation refreshes UpdatedAt,
// and EditAt(i) truncates every message after i. Model is set at creation
// and pinned for the conversation's lifetime; switching models mid-thread
// starts a new conversation instead.
type Conversation struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
	Model     string        `json:"model,omitempty"`
}

// NewConversation creates an empty conversation with a fresh identifier and
// both timestamps set to now.
func NewConversation(name, model string) *Conversation {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Conversation{
		ID:        uuid.NewString(),
		Name:      name,
		Messages:  nil,
		CreatedAt: now,
		UpdatedAt: now,
		Model:     model,
	}
}

// touch refreshes UpdatedAt to the current time.
func (c *Conversation) touch() {
	c.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// WallClockTimestamp renders the short, human-readable timestamp used for
// ChatMessage.Timestamp. Deliberately distinct from the RFC-3339 encoding
// used for CreatedAt/UpdatedAt: messages show a local wall-clock time for
// quick scanning, while the conversation envelope keeps a durable,
// zone-unambiguous record.
func WallClockTimestamp(t time.Time) string {
	return t.Local().Format("15:04:05")
}

// Append adds a message to the end of the conversation and refreshes
// UpdatedAt.
func (c *Conversation) Append(msg ChatMessage) {
	c.Messages = append(c.Messages, msg)
	c.touch()
}

// EditAt replaces the content of the message at index i and truncates every
// message after it: editing a turn discards whatever followed it.
func (c *Conversation) EditAt(i int, newContent string) error {
	if i < 0 || i >= len(c.Messages) {
		return fmt.Errorf("edit index %d out of range [0,%d)", i, len(c.Messages))
	}
	c.Messages[i].Content = newContent
	c.Messages = c.Messages[:i+1]
	c.touch()
	return nil
}

// DeleteAt removes exactly the message at index i, preserving the relative
// order of the remaining messages.
func (c *Conversation) DeleteAt(i int) error {
	if i < 0 || i >= len(c.Messages) {
		return fmt.Errorf("delete index %d out of range [0,%d)", i, len(c.Messages))
	}
	c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
	c.touch()
	return nil
}

// Rename changes the conversation's display name and refreshes UpdatedAt.
func (c *Conversation) Rename(name string) {
	c.Name = name
	c.touch()
}

const previewMaxLen = 50
const emptyPreviewSentinel = "(no messages)"

// Metadata derives the ConversationMetadata projection used by sidebar
// listings. Pure function of the conversation's current state.
func (c *Conversation) Metadata() ConversationMetadata {
	return ConversationMetadata{
		ID:           c.ID,
		Name:         c.Name,
		Preview:      c.preview(),
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
}

func (c *Conversation) preview() string {
	for _, m := range c.Messages {
		if m.Role != RoleUser {
			continue
		}
		return utils.Truncate(m.Content, previewMaxLen)
	}
	return emptyPreviewSentinel
}

// ConversationMetadata is the projection of a Conversation used for sidebar
// listings. Always derived, never the source of truth.
type ConversationMetadata struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Preview      string `json:"preview"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// MetadataIndex is the ordered, persisted index of every conversation's
// metadata, sorted descending by UpdatedAt.
type MetadataIndex struct {
	Conversations []ConversationMetadata `json:"conversations"`
}
