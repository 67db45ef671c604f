package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/store"
)

func testHandler(gen *mockGenerator) (http.Handler, *Service) {
	st := store.NewInMemoryStore()
	var svc *Service
	if gen != nil {
		svc = newService(st, gen, gen)
	} else {
		svc = newService(st, nil, nil)
	}
	return NewServer(svc).Handler(), svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func TestHandler_RecordTurn(t *testing.T) {
	h, _ := testHandler(nil)
	w := doJSON(t, h, http.MethodPost, "/conversations/u1/turns",
		models.ConversationTurn{Role: models.RoleUser, Content: "hello world"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp.Status != string(models.APIStatusRecorded) {
		t.Errorf("status = %q, want recorded", resp.Status)
	}
}

func TestHandler_RecordTurnInvalidJSON(t *testing.T) {
	h, _ := testHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/conversations/u1/turns", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_RecordTurnEmptyContent(t *testing.T) {
	h, _ := testHandler(nil)
	w := doJSON(t, h, http.MethodPost, "/conversations/u1/turns",
		models.ConversationTurn{Role: models.RoleUser, Content: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_Readiness(t *testing.T) {
	h, _ := testHandler(nil)
	doJSON(t, h, http.MethodPost, "/conversations/u1/turns",
		models.ConversationTurn{Role: models.RoleUser, Content: "I remember when everything changed last year and I felt overwhelmed"})
	doJSON(t, h, http.MethodPost, "/conversations/u1/turns",
		models.ConversationTurn{Role: models.RoleAssistant, Content: "Tell me more."})

	w := doJSON(t, h, http.MethodGet, "/conversations/u1/readiness", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %T, want object", resp.Result)
	}
	if _, ok := result["recommendation"]; !ok {
		t.Errorf("result missing recommendation: %v", result)
	}
	if result["analysis_method"] != string(models.AnalysisMethodRules) {
		t.Errorf("analysis_method = %v, want rules_based offline", result["analysis_method"])
	}
}

func TestHandler_SynthesizeAndFetchStory(t *testing.T) {
	h, _ := testHandler(nil)
	doJSON(t, h, http.MethodPost, "/conversations/u1/turns",
		models.ConversationTurn{Role: models.RoleUser, Content: "Last spring I quit my job to care for my mother"})
	doJSON(t, h, http.MethodPost, "/conversations/u1/turns",
		models.ConversationTurn{Role: models.RoleUser, Content: "I learned what really matters to me"})

	w := doJSON(t, h, http.MethodPost, "/conversations/u1/story",
		synthesizeRequest{TitleSuggestion: "Caring", Visibility: models.VisibilityPublic})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	created := resp.Result.(map[string]interface{})
	if created["title"] != "Caring" {
		t.Errorf("title = %v", created["title"])
	}
	storyID := created["id"].(string)

	w = doJSON(t, h, http.MethodGet, "/stories/"+storyID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get story status = %d, want 200", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/users/u1/stories", nil)
	if w.Code != http.StatusOK {
		t.Errorf("list stories status = %d, want 200", w.Code)
	}
}

func TestHandler_GetStoryNotFound(t *testing.T) {
	h, _ := testHandler(nil)
	w := doJSON(t, h, http.MethodGet, "/stories/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandler_GenerateFormatErrors(t *testing.T) {
	h, svc := testHandler(nil)
	recordedConversation(t, svc, "u1")
	created, err := svc.SynthesizeStory(context.Background(), "u1", nil, "", "")
	if err != nil {
		t.Fatalf("SynthesizeStory failed: %v", err)
	}

	w := doJSON(t, h, http.MethodPost, "/stories/"+created.ID+"/formats/bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unsupported format status = %d, want 400", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/stories/"+created.ID+"/formats/x", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("no backend status = %d, want 503", w.Code)
	}
}

func TestHandler_GenerateFormat(t *testing.T) {
	gen := &mockGenerator{text: "A post with #tags"}
	h, svc := testHandler(gen)
	recordedConversation(t, svc, "u1")
	created, err := svc.SynthesizeStory(context.Background(), "u1", nil, "", "")
	if err != nil {
		t.Fatalf("SynthesizeStory failed: %v", err)
	}

	w := doJSON(t, h, http.MethodPost, "/stories/"+created.ID+"/formats/x", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	artifact := resp.Result.(map[string]interface{})
	if artifact["format_id"] != "x" {
		t.Errorf("format_id = %v", artifact["format_id"])
	}
}

func TestHandler_GenerateFormatsBatch(t *testing.T) {
	gen := &mockGenerator{text: "content with #tags and a question?"}
	h, svc := testHandler(gen)
	recordedConversation(t, svc, "u1")
	created, err := svc.SynthesizeStory(context.Background(), "u1", nil, "", "")
	if err != nil {
		t.Fatalf("SynthesizeStory failed: %v", err)
	}

	w := doJSON(t, h, http.MethodPost, "/stories/"+created.ID+"/formats",
		generateFormatsRequest{Formats: []string{"x", "bogus"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	results := resp.Result.(map[string]interface{})
	if len(results) != 2 {
		t.Errorf("results = %d entries, want 2", len(results))
	}
	bogus := results["bogus"].(map[string]interface{})
	if bogus["error"] == nil {
		t.Errorf("bogus entry should carry an error: %v", bogus)
	}
}

func TestHandler_UpdateStory(t *testing.T) {
	h, svc := testHandler(nil)
	recordedConversation(t, svc, "u1")
	created, err := svc.SynthesizeStory(context.Background(), "u1", nil, "", "")
	if err != nil {
		t.Fatalf("SynthesizeStory failed: %v", err)
	}

	w := doJSON(t, h, http.MethodPatch, "/stories/"+created.ID,
		updateStoryRequest{Title: "New Title"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	updated := resp.Result.(map[string]interface{})
	if updated["title"] != "New Title" {
		t.Errorf("title = %v", updated["title"])
	}
}

func TestHandler_FormatsAndHealth(t *testing.T) {
	h, _ := testHandler(nil)
	w := doJSON(t, h, http.MethodGet, "/formats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("formats status = %d, want 200", w.Code)
	}
	resp := decodeResponse(t, w)
	ids, ok := resp.Result.([]interface{})
	if !ok || len(ids) != 19 {
		t.Errorf("formats = %v, want 19 ids", resp.Result)
	}

	w = doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}
