// Package store provides storage backends for StoryPipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// AppendTurn adds a turn to a conversation.
func (s *PostgresStore) AppendTurn(conversationID string, turn models.ConversationTurn) error {
	_, err := s.db.Exec(`INSERT INTO conversation_turns (conversation_id, role, content, timestamp) VALUES ($1, $2, $3, $4)`,
		conversationID, string(turn.Role), turn.Content, turn.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AppendTurn failed", "error", err, "conversationID", conversationID)
		return fmt.Errorf("failed to insert turn for %s: %w", conversationID, err)
	}
	slog.Debug("PostgresStore AppendTurn succeeded", "conversationID", conversationID, "role", turn.Role)
	return nil
}

// GetConversation returns the turns of a conversation in insertion order.
func (s *PostgresStore) GetConversation(conversationID string) (models.Conversation, error) {
	rows, err := s.db.Query(`SELECT role, content, timestamp FROM conversation_turns WHERE conversation_id = $1 ORDER BY id`, conversationID)
	if err != nil {
		slog.Error("PostgresStore GetConversation query failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	conv := models.Conversation{}
	for rows.Next() {
		var turn models.ConversationTurn
		var role string
		if err := rows.Scan(&role, &turn.Content, &turn.Timestamp); err != nil {
			slog.Error("PostgresStore GetConversation scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turn.Role = models.TurnRole(role)
		conv = append(conv, turn)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetConversation rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	slog.Debug("PostgresStore GetConversation succeeded", "conversationID", conversationID, "turns", len(conv))
	return conv, nil
}

// SaveProfile inserts or replaces a profile.
func (s *PostgresStore) SaveProfile(p models.ContextProfile) error {
	fields, err := marshalProfileFields(p)
	if err != nil {
		slog.Error("PostgresStore SaveProfile marshal failed", "error", err, "userID", p.UserID)
		return err
	}
	query := `
		INSERT INTO profiles (user_id, total_interactions, total_words, emotion_expression_count,
			temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			total_interactions = EXCLUDED.total_interactions,
			total_words = EXCLUDED.total_words,
			emotion_expression_count = EXCLUDED.emotion_expression_count,
			temporal_reference_count = EXCLUDED.temporal_reference_count,
			relationship_mention_count = EXCLUDED.relationship_mention_count,
			engagement_level = EXCLUDED.engagement_level,
			completeness = EXCLUDED.completeness,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query, p.UserID, p.TotalInteractions, p.TotalWords, p.EmotionExpressionCount,
		p.TemporalReferenceCount, p.RelationshipMentionCount, string(p.EngagementLevel), p.Completeness, fields, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveProfile failed", "error", err, "userID", p.UserID)
		return fmt.Errorf("failed to save profile for %s: %w", p.UserID, err)
	}
	slog.Debug("PostgresStore SaveProfile succeeded", "userID", p.UserID, "engagement", p.EngagementLevel)
	return nil
}

// GetProfile returns the profile for a user, or nil if none exists.
func (s *PostgresStore) GetProfile(userID string) (*models.ContextProfile, error) {
	query := `SELECT user_id, total_interactions, total_words, emotion_expression_count,
		temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at
		FROM profiles WHERE user_id = $1`
	p, err := scanProfile(s.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetProfile not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "userID", userID)
		return nil, err
	}
	return p, nil
}

// UpdateProfile atomically replaces a user's profile. The row is locked for
// the duration of the transaction so concurrent turns for the same user
// serialize instead of losing increments.
func (s *PostgresStore) UpdateProfile(userID string, fn func(prev *models.ContextProfile) models.ContextProfile) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("PostgresStore UpdateProfile begin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT user_id, total_interactions, total_words, emotion_expression_count,
		temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at
		FROM profiles WHERE user_id = $1 FOR UPDATE`
	prev, err := scanProfile(tx.QueryRow(query, userID))
	if err != nil && err != sql.ErrNoRows {
		slog.Error("PostgresStore UpdateProfile select failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to read profile for %s: %w", userID, err)
	}
	if err == sql.ErrNoRows {
		prev = nil
	}

	updated := fn(prev)
	fields, err := marshalProfileFields(updated)
	if err != nil {
		slog.Error("PostgresStore UpdateProfile marshal failed", "error", err, "userID", userID)
		return err
	}
	upsert := `
		INSERT INTO profiles (user_id, total_interactions, total_words, emotion_expression_count,
			temporal_reference_count, relationship_mention_count, engagement_level, completeness, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			total_interactions = EXCLUDED.total_interactions,
			total_words = EXCLUDED.total_words,
			emotion_expression_count = EXCLUDED.emotion_expression_count,
			temporal_reference_count = EXCLUDED.temporal_reference_count,
			relationship_mention_count = EXCLUDED.relationship_mention_count,
			engagement_level = EXCLUDED.engagement_level,
			completeness = EXCLUDED.completeness,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(upsert, updated.UserID, updated.TotalInteractions, updated.TotalWords, updated.EmotionExpressionCount,
		updated.TemporalReferenceCount, updated.RelationshipMentionCount, string(updated.EngagementLevel), updated.Completeness,
		fields, updated.CreatedAt, updated.UpdatedAt); err != nil {
		slog.Error("PostgresStore UpdateProfile upsert failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to update profile for %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore UpdateProfile commit failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to commit profile update: %w", err)
	}
	slog.Debug("PostgresStore UpdateProfile succeeded", "userID", userID)
	return nil
}

// SaveStory inserts or replaces a story.
func (s *PostgresStore) SaveStory(st models.Story) error {
	tags, analysis, formats, err := marshalStoryColumns(st)
	if err != nil {
		slog.Error("PostgresStore SaveStory marshal failed", "error", err, "storyID", st.ID)
		return err
	}
	query := `
		INSERT INTO stories (id, author_id, title, body, tags, analysis, formats, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			tags = EXCLUDED.tags,
			analysis = EXCLUDED.analysis,
			formats = EXCLUDED.formats,
			visibility = EXCLUDED.visibility,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query, st.ID, st.AuthorID, st.Title, st.Body, tags, analysis, formats,
		string(st.Visibility), st.CreatedAt, st.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveStory failed", "error", err, "storyID", st.ID)
		return fmt.Errorf("failed to save story %s: %w", st.ID, err)
	}
	slog.Debug("PostgresStore SaveStory succeeded", "storyID", st.ID, "authorID", st.AuthorID)
	return nil
}

// GetStory returns a story by id, or nil if none exists.
func (s *PostgresStore) GetStory(id string) (*models.Story, error) {
	query := `SELECT id, author_id, title, body, tags, analysis, formats, visibility, created_at, updated_at
		FROM stories WHERE id = $1`
	st, err := scanStory(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetStory not found", "storyID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetStory failed", "error", err, "storyID", id)
		return nil, err
	}
	return st, nil
}

// ListStoriesByAuthor returns the author's stories, newest first.
func (s *PostgresStore) ListStoriesByAuthor(authorID string) ([]models.Story, error) {
	query := `SELECT id, author_id, title, body, tags, analysis, formats, visibility, created_at, updated_at
		FROM stories WHERE author_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.Query(query, authorID)
	if err != nil {
		slog.Error("PostgresStore ListStoriesByAuthor query failed", "error", err, "authorID", authorID)
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			slog.Error("PostgresStore ListStoriesByAuthor scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		stories = append(stories, *st)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListStoriesByAuthor rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate story rows: %w", err)
	}
	slog.Debug("PostgresStore ListStoriesByAuthor succeeded", "authorID", authorID, "count", len(stories))
	return stories, nil
}

// UpdateStoryFormat atomically replaces one format artifact of a story. The
// row is locked for the duration of the transaction so concurrent updates to
// different format keys serialize instead of clobbering each other.
func (s *PostgresStore) UpdateStoryFormat(storyID, formatID string, fn func(prev *models.FormatArtifact) models.FormatArtifact) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("PostgresStore UpdateStoryFormat begin failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var formatsJSON sql.NullString
	err = tx.QueryRow(`SELECT formats FROM stories WHERE id = $1 FOR UPDATE`, storyID).Scan(&formatsJSON)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore UpdateStoryFormat story not found", "storyID", storyID)
		return ErrStoryNotFound
	}
	if err != nil {
		slog.Error("PostgresStore UpdateStoryFormat select failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to read formats for %s: %w", storyID, err)
	}

	updated, err := applyFormatUpdate(formatsJSON.String, formatID, fn)
	if err != nil {
		slog.Error("PostgresStore UpdateStoryFormat apply failed", "error", err, "storyID", storyID, "formatID", formatID)
		return err
	}

	if _, err := tx.Exec(`UPDATE stories SET formats = $1, updated_at = $2 WHERE id = $3`, updated, time.Now(), storyID); err != nil {
		slog.Error("PostgresStore UpdateStoryFormat update failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to update formats for %s: %w", storyID, err)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore UpdateStoryFormat commit failed", "error", err, "storyID", storyID)
		return fmt.Errorf("failed to commit format update: %w", err)
	}
	slog.Debug("PostgresStore UpdateStoryFormat succeeded", "storyID", storyID, "formatID", formatID)
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
