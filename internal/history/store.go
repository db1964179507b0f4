// Package history persists queries and their aggregated results so
// prior research can be reviewed and reused. The aggregation engine
// only ever talks to the Sink interface; everything else is the read
// path consumed by the UI layer.
package history

import (
	"time"

	"github.com/mrhappynice/bplus-searchrs/internal/search"
)

// Sink receives each query and its final result set for persistence.
// Recording failures must never fail the search call; callers log and
// move on.
type Sink interface {
	Record(query string, rs *search.ResultSet, at time.Time) error
}

// Store is the full conversation history surface.
type Store interface {
	Sink

	// Conversation management
	CreateConversation(title string) (string, error)
	GetConversation(id string) (*Conversation, error)
	GetLatestConversation() (*Conversation, error)
	ListConversations() ([]*Conversation, error)
	DeleteConversation(id string) error

	// Messages
	AddMessage(conversationID, role, content, sources string) (int64, error)
	GetMessages(conversationID string, limit int) ([]*Message, error)
	SearchMessages(term string, limit int) ([]*Message, error)

	// Research notes, one per conversation
	SaveNote(conversationID, content string) error

	// Close connection
	Close() error
}

// Conversation is one research session.
type Conversation struct {
	ID        string
	Title     string
	Note      string
	CreatedAt time.Time
	Messages  []*Message
}

// Message is one turn within a conversation. Sources holds the
// serialized result items an assistant turn cited, empty otherwise.
type Message struct {
	ID             int64
	ConversationID string
	Role           string // "user" | "assistant"
	Content        string
	Sources        string
	CreatedAt      time.Time
}
