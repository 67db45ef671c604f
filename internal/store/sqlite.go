// Package store provides storage backends for StoryPipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// AppendTurn adds a turn to a conversation.
func (s *SQLiteStore) AppendTurn(conversationID string, turn models.ConversationTurn) error {
	_, err := s.db.Exec(`INSERT INTO conversation_turns (conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		conversationID, string(turn.Role), turn.Content, turn.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AppendTurn failed", "error", err, "conversationID", conversationID)
		return fmt.Errorf("failed to insert turn for %s: %w", conversationID, err)
	}
	slog.Debug("SQLiteStore AppendTurn succeeded", "conversationID", conversationID, "role", turn.Role)
	return nil
}

// GetConversation returns the turns of a conversation in insertion order.
func (s *SQLiteStore) GetConversation(conversationID string) (models.Conversation, error) {
	rows, err := s.db.Query(`SELECT role, content, timestamp FROM conversation_turns WHERE conversation_id = ? ORDER BY id`, conversationID)
	if err != nil {
		slog.Error("SQLiteStore GetConversation query failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	conv := models.Conversation{}
	for rows.Next() {
		var turn models.ConversationTurn
		var role string
		if err := rows.Scan(&role, &turn.Content, &turn.Timestamp); err != nil {
			slog.Error("SQLiteStore GetConversation scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turn.Role = models.TurnRole(role)
		conv = append(conv, turn)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetConversation rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	slog.Debug("SQLiteStore GetConversation succeeded", "conversationID", conversationID, "turns", len(conv))
	return conv, nil
}

// SaveProfile inserts or replaces a profile.
func (s *SQLiteStore) SaveProfile(p models.ContextProfile) error {
	fields, err := marshalProfileFields(p)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile marshal failed", "error", err, "userID", p.UserID)
		return err
	}
	query := `
		INSERT OR REPLACE INTO profiles (user_id, total_interactions, total_words, emotion_expression_count,
			temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, p.UserID, p.TotalInteractions, p.TotalWords, p.EmotionExpressionCount,
		p.TemporalReferenceCount, p.RelationshipMentionCount, string(p.EngagementLevel), p.Completeness, fields, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "userID", p.UserID)
		return fmt.Errorf("failed to save profile for %s: %w", p.UserID, err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "userID", p.UserID, "engagement", p.EngagementLevel)
	return nil
}

// GetProfile returns the profile for a user, or nil if none exists.
func (s *SQLiteStore) GetProfile(userID string) (*models.ContextProfile, error) {
	query := `SELECT user_id, total_interactions, total_words, emotion_expression_count,
		temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at
		FROM profiles WHERE user_id = ?`
	p, err := scanProfile(s.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetProfile not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "userID", userID)
		return nil, err
	}
	return p, nil
}

// UpdateProfile atomically replaces a user's profile inside a transaction.
func (s *SQLiteStore) UpdateProfile(userID string, fn func(prev *models.ContextProfile) models.ContextProfile) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("SQLiteStore UpdateProfile begin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT user_id, total_interactions, total_words, emotion_expression_count,
		temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at
		FROM profiles WHERE user_id = ?`
	prev, err := scanProfile(tx.QueryRow(query, userID))
	if err != nil && err != sql.ErrNoRows {
		slog.Error("SQLiteStore UpdateProfile select failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to read profile for %s: %w", userID, err)
	}
	if err == sql.ErrNoRows {
		prev = nil
	}

	updated := fn(prev)
	fields, err := marshalProfileFields(updated)
	if err != nil {
		slog.Error("SQLiteStore UpdateProfile marshal failed", "error", err, "userID", userID)
		return err
	}
	upsert := `
		INSERT OR REPLACE INTO profiles (user_id, total_interactions, total_words, emotion_expression_count,
			temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.Exec(upsert, updated.UserID, updated.TotalInteractions, updated.TotalWords, updated.EmotionExpressionCount,
		updated.TemporalReferenceCount, updated.RelationshipMentionCount, string(updated.EngagementLevel), updated.Completeness,
		fields, updated.CreatedAt, updated.UpdatedAt); err != nil {
		slog.Error("SQLiteStore UpdateProfile upsert failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to update profile for %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore UpdateProfile commit failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to commit profile update: %w", err)
	}
	slog.Debug("SQLiteStore UpdateProfile succeeded", "userID", userID)
	return nil
}

// SaveStory inserts or replaces a story.
func (s *SQLiteStore) SaveStory(st models.Story) error {
	tags, analysis, formats, err := marshalStoryColumns(st)
	if err != nil {
		slog.Error("SQLiteStore SaveStory marshal failed", "error", err, "storyID", st.ID)
		return err
	}
	query := `
		INSERT OR REPLACE INTO stories (id, author_id, title, body, tags, analysis, formats, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, st.ID, st.AuthorID, st.Title, st.Body, tags, analysis, formats,
		string(st.Visibility), st.CreatedAt, st.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveStory failed", "error", err, "storyID", st.ID)
		return fmt.Errorf("failed to save story %s: %w", st.ID, err)
	}
	slog.Debug("SQLiteStore SaveStory succeeded", "storyID", st.ID, "authorID", st.AuthorID)
	return nil
}

// GetStory returns a story by id, or nil if none exists.
func (s *SQLiteStore) GetStory(id string) (*models.Story, error) {
	query := `SELECT id, author_id, title, body, tags, analysis, formats, visibility, created_at, updated_at
		FROM stories WHERE id = ?`
	st, err := scanStory(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetStory not found", "storyID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetStory failed", "error", err, "storyID", id)
		return nil, err
	}
	return st, nil
}

// ListStoriesByAuthor returns the author's stories, newest first.
func (s *SQLiteStore) ListStoriesByAuthor(authorID string) ([]models.Story, error) {
	query := `SELECT id, author_id, title, body, tags, analysis, formats, visibility, created_at, updated_at
		FROM stories WHERE author_id = ? ORDER BY created_at DESC`
	rows, err := s.db.Query(query, authorID)
	if err != nil {
		slog.Error("SQLiteStore ListStoriesByAuthor query failed", "error", err, "authorID", authorID)
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			slog.Error("SQLiteStore ListStoriesByAuthor scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		stories = append(stories, *st)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListStoriesByAuthor rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate story rows: %w", err)
	}
	slog.Debug("SQLiteStore ListStoriesByAuthor succeeded", "authorID", authorID, "count", len(stories))
	return stories, nil
}

// UpdateStoryFormat atomically replaces one format artifact of a story.
func (s *SQLiteStore) UpdateStoryFormat(storyID, formatID string, fn func(prev *models.FormatArtifact) models.FormatArtifact) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("SQLiteStore UpdateStoryFormat begin failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var formatsJSON sql.NullString
	err = tx.QueryRow(`SELECT formats FROM stories WHERE id = ?`, storyID).Scan(&formatsJSON)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore UpdateStoryFormat story not found", "storyID", storyID)
		return ErrStoryNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore UpdateStoryFormat select failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to read formats for %s: %w", storyID, err)
	}

	updated, err := applyFormatUpdate(formatsJSON.String, formatID, fn)
	if err != nil {
		slog.Error("SQLiteStore UpdateStoryFormat apply failed", "error", err, "storyID", storyID, "formatID", formatID)
		return err
	}

	if _, err := tx.Exec(`UPDATE stories SET formats = ?, updated_at = ? WHERE id = ?`, updated, time.Now(), storyID); err != nil {
		slog.Error("SQLiteStore UpdateStoryFormat update failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to update formats for %s: %w", storyID, err)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore UpdateStoryFormat commit failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to commit format update: %w", err)
	}
	slog.Debug("SQLiteStore UpdateStoryFormat succeeded", "storyID", storyID, "formatID", formatID)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
