package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// marshalStoryColumns serializes the JSON-backed story columns. Empty values
// become NULL rather than empty JSON text.
func marshalStoryColumns(st models.Story) (tags, analysis, formats interface{}, err error) {
	if len(st.Tags) > 0 {
		b, err := json.Marshal(st.Tags)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal tags: %w", err)
		}
		tags = string(b)
	}
	b, err := json.Marshal(st.Analysis)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal analysis: %w", err)
	}
	analysis = string(b)
	if len(st.Formats) > 0 {
		b, err := json.Marshal(st.Formats)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal formats: %w", err)
		}
		formats = string(b)
	}
	return tags, analysis, formats, nil
}

// scanStory reads one story row, decoding the JSON-backed columns.
func scanStory(row rowScanner) (*models.Story, error) {
	var st models.Story
	var tags, analysis, formats sql.NullString
	var visibility string
	err := row.Scan(&st.ID, &st.AuthorID, &st.Title, &st.Body, &tags, &analysis, &formats,
		&visibility, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Visibility = models.StoryVisibility(visibility)
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &st.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", st.ID, err)
		}
	}
	if analysis.Valid && analysis.String != "" {
		if err := json.Unmarshal([]byte(analysis.String), &st.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis for %s: %w", st.ID, err)
		}
	}
	if formats.Valid && formats.String != "" {
		if err := json.Unmarshal([]byte(formats.String), &st.Formats); err != nil {
			return nil, fmt.Errorf("unmarshal formats for %s: %w", st.ID, err)
		}
	}
	return &st, nil
}

// marshalProfileFields serializes the personal fields map, NULL when empty.
func marshalProfileFields(p models.ContextProfile) (interface{}, error) {
	if len(p.Fields) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(p.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal profile fields: %w", err)
	}
	return string(b), nil
}

// scanProfile reads one profile row.
func scanProfile(row rowScanner) (*models.ContextProfile, error) {
	var p models.ContextProfile
	var engagement string
	var fields sql.NullString
	err := row.Scan(&p.UserID, &p.TotalInteractions, &p.TotalWords, &p.EmotionExpressionCount,
		&p.TemporalReferenceCount, &p.RelationshipMentionCount, &engagement, &p.Completeness,
		&fields, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.EngagementLevel = models.EngagementLevel(engagement)
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &p.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields for %s: %w", p.UserID, err)
		}
	}
	return &p, nil
}

// applyFormatUpdate decodes a formats JSON column, applies fn to the targeted
// key, and re-encodes the map.
func applyFormatUpdate(formatsJSON, formatID string, fn func(prev *models.FormatArtifact) models.FormatArtifact) (string, error) {
	formatsMap := make(map[string]models.FormatArtifact)
	if formatsJSON != "" {
		if err := json.Unmarshal([]byte(formatsJSON), &formatsMap); err != nil {
			return "", fmt.Errorf("unmarshal formats: %w", err)
		}
	}
	var prev *models.FormatArtifact
	if existing, ok := formatsMap[formatID]; ok {
		prev = &existing
	}
	formatsMap[formatID] = fn(prev)
	b, err := json.Marshal(formatsMap)
	if err != nil {
		return "", fmt.Errorf("marshal formats: %w", err)
	}
	return string(b), nil
}
