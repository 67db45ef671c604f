// Package store provides storage backends for StoryPipe.
//
// It includes an in-memory store for tests and single-process use, plus
// SQLite and PostgreSQL backends selected by DSN.
package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// Store is the persistence surface shared by all backends.
type Store interface {
	// AppendTurn adds a turn to the end of a conversation. Conversations are
	// append-only; insertion order is canonical.
	AppendTurn(conversationID string, turn models.ConversationTurn) error
	// GetConversation returns all turns of a conversation in insertion order.
	// A conversation with no turns yields an empty slice, not an error.
	GetConversation(conversationID string) (models.Conversation, error)

	// SaveProfile inserts or replaces a context profile.
	SaveProfile(p models.ContextProfile) error
	// GetProfile returns the profile for a user, or nil if none exists.
	GetProfile(userID string) (*models.ContextProfile, error)
	// UpdateProfile atomically replaces a user's profile. fn receives the
	// previous profile (nil if absent) and returns the replacement;
	// concurrent updates for the same user must not lose increments.
	UpdateProfile(userID string, fn func(prev *models.ContextProfile) models.ContextProfile) error

	// SaveStory inserts or replaces a story.
	SaveStory(s models.Story) error
	// GetStory returns a story by id, or nil if none exists.
	GetStory(id string) (*models.Story, error)
	// ListStoriesByAuthor returns the author's stories, newest first.
	ListStoriesByAuthor(authorID string) ([]models.Story, error)
	// UpdateStoryFormat atomically replaces one format artifact of a story.
	// fn receives the previous artifact (nil if absent) and returns the
	// replacement; concurrent updates to different format keys must not
	// clobber each other.
	UpdateStoryFormat(storyID, formatID string, fn func(prev *models.FormatArtifact) models.FormatArtifact) error

	// Close releases backend resources.
	Close() error
}

// ErrStoryNotFound is returned by format updates against a missing story.
var ErrStoryNotFound = fmt.Errorf("story not found")

// InMemoryStore is a mutex-guarded map-backed store.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	profiles      map[string]models.ContextProfile
	stories       map[string]models.Story
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]models.Conversation),
		profiles:      make(map[string]models.ContextProfile),
		stories:       make(map[string]models.Story),
	}
}

// AppendTurn adds a turn to a conversation.
func (s *InMemoryStore) AppendTurn(conversationID string, turn models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationID] = append(s.conversations[conversationID], turn)
	return nil
}

// GetConversation returns the turns of a conversation in insertion order.
func (s *InMemoryStore) GetConversation(conversationID string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv := s.conversations[conversationID]
	out := make(models.Conversation, len(conv))
	copy(out, conv)
	return out, nil
}

// SaveProfile inserts or replaces a profile.
func (s *InMemoryStore) SaveProfile(p models.ContextProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

// GetProfile returns the profile for a user, or nil if none exists.
func (s *InMemoryStore) GetProfile(userID string) (*models.ContextProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	p = copyProfile(p)
	return &p, nil
}

// UpdateProfile atomically replaces a user's profile.
func (s *InMemoryStore) UpdateProfile(userID string, fn func(prev *models.ContextProfile) models.ContextProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var prev *models.ContextProfile
	if p, ok := s.profiles[userID]; ok {
		p = copyProfile(p)
		prev = &p
	}
	s.profiles[userID] = fn(prev)
	return nil
}

// copyProfile detaches the profile's map state from the stored value.
func copyProfile(p models.ContextProfile) models.ContextProfile {
	if p.Fields != nil {
		fields := make(map[string]string, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}
		p.Fields = fields
	}
	return p
}

// SaveStory inserts or replaces a story.
func (s *InMemoryStore) SaveStory(st models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories[st.ID] = st
	return nil
}

// GetStory returns a story by id, or nil if none exists.
func (s *InMemoryStore) GetStory(id string) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// ListStoriesByAuthor returns the author's stories, newest first.
func (s *InMemoryStore) ListStoriesByAuthor(authorID string) ([]models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Story
	for _, st := range s.stories {
		if st.AuthorID == authorID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStoryFormat atomically replaces one format artifact of a story.
func (s *InMemoryStore) UpdateStoryFormat(storyID, formatID string, fn func(prev *models.FormatArtifact) models.FormatArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[storyID]
	if !ok {
		slog.Debug("InMemoryStore.UpdateStoryFormat: story not found", "storyID", storyID)
		return ErrStoryNotFound
	}
	var prev *models.FormatArtifact
	if existing, ok := st.Formats[formatID]; ok {
		prev = &existing
	}
	if st.Formats == nil {
		st.Formats = make(map[string]models.FormatArtifact)
	}
	st.Formats[formatID] = fn(prev)
	s.stories[storyID] = st
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

// isPostgresDSN reports whether a DSN targets PostgreSQL rather than a
// SQLite file path.
func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}
