package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// synthesizeRequest is the body of POST /conversations/{userID}/story.
type synthesizeRequest struct {
	TitleSuggestion string                 `json:"title_suggestion,omitempty"`
	Visibility      models.StoryVisibility `json:"visibility,omitempty"`
}

// updateStoryRequest is the body of PATCH /stories/{storyID}.
type updateStoryRequest struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// generateFormatsRequest is the body of POST /stories/{storyID}/formats.
type generateFormatsRequest struct {
	Formats []string `json:"formats"`
}

func (s *Server) recordTurnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	userID := chi.URLParam(r, "userID")
	slog.Debug("Server.recordTurnHandler: processing turn", "userID", userID)

	var turn models.ConversationTurn
	if err := json.NewDecoder(r.Body).Decode(&turn); err != nil {
		slog.Warn("Server.recordTurnHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := s.svc.RecordTurn(r.Context(), userID, turn); err != nil {
		slog.Warn("Server.recordTurnHandler: record failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Recorded())
}

func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	slog.Debug("Server.readinessHandler: evaluating readiness", "userID", userID)

	result, err := s.svc.EvaluateReadiness(r.Context(), userID, nil)
	if err != nil {
		slog.Error("Server.readinessHandler: evaluation failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error("Failed to evaluate readiness"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) synthesizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	userID := chi.URLParam(r, "userID")
	slog.Debug("Server.synthesizeHandler: synthesizing story", "userID", userID)

	var req synthesizeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.synthesizeHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
	}
	st, err := s.svc.SynthesizeStory(r.Context(), userID, nil, req.TitleSuggestion, req.Visibility)
	if err != nil {
		slog.Warn("Server.synthesizeHandler: synthesis failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	slog.Info("Server.synthesizeHandler: story created", "userID", userID, "storyID", st.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(st))
}

func (s *Server) getStoryHandler(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	st, err := s.svc.GetStory(r.Context(), storyID)
	if err != nil {
		slog.Warn("Server.getStoryHandler: lookup failed", "storyID", storyID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error("Story not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(st))
}

func (s *Server) listStoriesHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	stories, err := s.svc.ListStories(r.Context(), userID)
	if err != nil {
		slog.Error("Server.listStoriesHandler: list failed", "userID", userID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list stories"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stories))
}

func (s *Server) updateStoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	storyID := chi.URLParam(r, "storyID")
	var req updateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.updateStoryHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	st, err := s.svc.UpdateStoryContent(r.Context(), storyID, req.Title, req.Body)
	if err != nil {
		slog.Warn("Server.updateStoryHandler: update failed", "storyID", storyID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	slog.Info("Server.updateStoryHandler: story updated", "storyID", storyID)
	writeJSONResponse(w, http.StatusOK, models.Success(st))
}

func (s *Server) generateFormatHandler(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	formatID := chi.URLParam(r, "formatID")
	clearMetadata := r.URL.Query().Get("clear_metadata") == "true"
	slog.Debug("Server.generateFormatHandler: generating format", "storyID", storyID, "formatID", formatID)

	artifact, err := s.svc.GenerateFormat(r.Context(), storyID, formatID, clearMetadata)
	if err != nil {
		slog.Warn("Server.generateFormatHandler: generation failed", "storyID", storyID, "formatID", formatID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(artifact))
}

func (s *Server) generateFormatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	storyID := chi.URLParam(r, "storyID")
	var req generateFormatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.generateFormatsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	results, err := s.svc.GenerateFormats(r.Context(), storyID, req.Formats)
	if err != nil {
		slog.Warn("Server.generateFormatsHandler: batch failed", "storyID", storyID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(results))
}
