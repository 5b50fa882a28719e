package sync

import (
	"context"
	"time"
)

// Document describes a single file attached to a message.
type Document struct {
	Name      string `json:"name"`
	Size      int64  `json:"size,omitempty"`
	RemoteRef string `json:"remote_ref,omitempty"`
}

// RawMessage is one remote channel message as exposed by a MessageSource.
type RawMessage struct {
	ID       int64
	Text     string
	RichText string
	Date     time.Time
	// GroupID groups multiple messages published together; empty for
	// standalone messages.
	GroupID  string
	Document *Document
}

// Channel identifies one source channel to reconcile.
type Channel struct {
	Handle string `yaml:"handle" json:"handle"` // without the leading @
	ChatID int64  `yaml:"chat_id" json:"chat_id"`
	Limit  int    `yaml:"limit,omitempty" json:"limit,omitempty"` // 0 = full history
}

// MessageSource yields the historical messages of a channel, oldest first.
// Iteration happens in one blocking pass; a transport timeout propagates as a
// hard failure of the whole sync.
type MessageSource interface {
	FetchHistory(ctx context.Context, channel Channel) ([]RawMessage, error)
}
