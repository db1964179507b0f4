package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mrhappynice/bplus-searchrs/internal/search"
)

// SQLiteStore SQLite history storage implementation
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}

	// Initialize tables
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return store, nil
}

// initTables initializes database tables
func (s *SQLiteStore) initTables() error {
	queries := []string{
		`PRAGMA foreign_keys = ON`,
		// Conversations (research sessions)
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Messages: user queries and assistant turns with cited sources
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			sources TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,
		// Research notes, one per conversation
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,
		// Full-text index over message content, maintained alongside
		// messages (docid mirrors messages.id)
		`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts4(content)`,
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", query, err)
		}
	}

	return nil
}

// CreateConversation creates a new conversation
func (s *SQLiteStore) CreateConversation(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		title = "New Conversation"
	}
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.Exec(
		"INSERT INTO conversations (id, title, created_at) VALUES (?, ?, ?)",
		id, title, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	return id, nil
}

// GetConversation gets a conversation by ID, including its messages
// and note. Returns nil when the conversation does not exist.
func (s *SQLiteStore) GetConversation(id string) (*Conversation, error) {
	var conv Conversation
	var note sql.NullString
	err := s.db.QueryRow(
		`SELECT c.id, c.title, c.created_at, n.content
		 FROM conversations c
		 LEFT JOIN notes n ON c.id = n.conversation_id
		 WHERE c.id = ?`,
		id,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &note)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	conv.Note = note.String

	messages, err := s.GetMessages(id, 0)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages

	return &conv, nil
}

// GetLatestConversation gets the most recently created conversation.
// Returns nil when no conversations exist.
func (s *SQLiteStore) GetLatestConversation() (*Conversation, error) {
	var id string
	err := s.db.QueryRow(
		"SELECT id FROM conversations ORDER BY created_at DESC, rowid DESC LIMIT 1",
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest conversation: %w", err)
	}
	return s.GetConversation(id)
}

// ListConversations lists all conversations, newest first, without
// loading their messages.
func (s *SQLiteStore) ListConversations() ([]*Conversation, error) {
	rows, err := s.db.Query(
		"SELECT id, title, created_at FROM conversations ORDER BY created_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, &conv)
	}
	return conversations, rows.Err()
}

// DeleteConversation deletes a conversation and its messages and note
func (s *SQLiteStore) DeleteConversation(id string) error {
	// The full-text index has no foreign key; clear it by hand first.
	_, err := s.db.Exec(
		"DELETE FROM messages_fts WHERE docid IN (SELECT id FROM messages WHERE conversation_id = ?)",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to clear message index: %w", err)
	}

	result, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("conversation not found: %s", id)
	}
	return nil
}

// AddMessage appends a message to a conversation
func (s *SQLiteStore) AddMessage(conversationID, role, content, sources string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO messages (conversation_id, role, content, sources, created_at) VALUES (?, ?, ?, ?, ?)",
		conversationID, role, content, nullable(sources), time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get message id: %w", err)
	}

	if _, err := s.db.Exec(
		"INSERT INTO messages_fts (docid, content) VALUES (?, ?)", id, content,
	); err != nil {
		return 0, fmt.Errorf("failed to index message: %w", err)
	}

	return id, nil
}

// GetMessages gets messages for a conversation in chronological order.
// limit <= 0 means all messages.
func (s *SQLiteStore) GetMessages(conversationID string, limit int) ([]*Message, error) {
	query := "SELECT id, conversation_id, role, content, sources, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC"
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// SearchMessages finds messages whose content matches the full-text
// term, newest first.
func (s *SQLiteStore) SearchMessages(term string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT m.id, m.conversation_id, m.role, m.content, m.sources, m.created_at
		 FROM messages m
		 JOIN messages_fts f ON f.docid = m.id
		 WHERE f.content MATCH ?
		 ORDER BY m.created_at DESC, m.id DESC
		 LIMIT ?`,
		term, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// SaveNote creates or replaces the research note for a conversation
func (s *SQLiteStore) SaveNote(conversationID, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO notes (conversation_id, content, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(conversation_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		conversationID, content, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

// Record implements Sink: the query becomes a user message and the
// merged results become an assistant message carrying the serialized
// citations. Appends to the latest conversation, creating one when the
// history is empty.
func (s *SQLiteStore) Record(query string, rs *search.ResultSet, at time.Time) error {
	conv, err := s.GetLatestConversation()
	if err != nil {
		return err
	}
	convID := ""
	if conv != nil {
		convID = conv.ID
	} else {
		convID, err = s.CreateConversation(query)
		if err != nil {
			return err
		}
	}

	if _, err := s.AddMessage(convID, "user", query, ""); err != nil {
		return err
	}

	sources, err := json.Marshal(rs.Results)
	if err != nil {
		return fmt.Errorf("failed to serialize sources: %w", err)
	}
	content := search.FormatSnippets(rs.Results)
	if content == "" {
		content = "No search results found."
	}
	if _, err := s.AddMessage(convID, "assistant", content, string(sources)); err != nil {
		return err
	}
	return nil
}

// SaveTo writes a consistent snapshot of the database to filename
// inside the store's directory.
func (s *SQLiteStore) SaveTo(filename string) error {
	if !strings.HasSuffix(filename, ".db") {
		filename += ".db"
	}
	path := filepath.Join(filepath.Dir(s.dbPath), filename)
	if _, err := s.db.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("failed to save database to %s: %w", filename, err)
	}
	return nil
}

// LoadFrom switches the store over to the named snapshot in the
// store's directory. The snapshot becomes the active database; the
// previous connection is closed. Fails without touching the current
// database when the snapshot is missing or unusable.
func (s *SQLiteStore) LoadFrom(filename string) error {
	if !strings.HasSuffix(filename, ".db") {
		filename += ".db"
	}
	path := filepath.Join(filepath.Dir(s.dbPath), filename)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("backup not found: %s", filename)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open backup %s: %w", filename, err)
	}

	old, oldPath := s.db, s.dbPath
	s.db, s.dbPath = db, path
	// Older snapshots may predate schema additions.
	if err := s.initTables(); err != nil {
		db.Close()
		s.db, s.dbPath = old, oldPath
		return fmt.Errorf("failed to load backup %s: %w", filename, err)
	}
	old.Close()
	return nil
}

// ListBackupFiles lists the .db files next to the active database.
func (s *SQLiteStore) ListBackupFiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Dir(s.dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read database directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".db" {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		var msg Message
		var sources sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &sources, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Sources = sources.String
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
