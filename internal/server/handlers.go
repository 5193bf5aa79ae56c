package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moomina/companion-go/pkg/core"
	"github.com/moomina/companion-go/pkg/intelligence"
	"github.com/moomina/companion-go/pkg/storage"
)

type chatRequest struct {
	Message string `json:"message"`
}

// imageRequest carries a base64 image, optionally as a data URL.
type imageRequest struct {
	Image   string `json:"image"`
	Message string `json:"message"`
}

type memoryRequest struct {
	Content    string `json:"content"`
	Category   string `json:"category"`
	Importance int    `json:"importance"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type galleryImage struct {
	ID        int64        `json:"id,string"`
	ImageURL  string       `json:"image_url"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Role      storage.Role `json:"role"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state, err := s.companion.State(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"name":   s.name,
		"mood":   state.Mood,
		"energy": state.Energy,
		"uptime": time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.companion.Chat(r.Context(), req.Message)
	if err != nil {
		if result != nil && result.Degraded {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "Something went wrong",
				"reply": result.Reply,
				"mood":  result.Mood,
			})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decode(w, r, &req) {
		return
	}

	image, err := decodeImage(req.Image)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.companion.ChatWithImage(r.Context(), image, req.Message)
	if err != nil {
		if result != nil && result.Degraded {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "Image analysis failed",
				"reply": result.Reply,
				"mood":  result.Mood,
			})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	if encoded == "" {
		return nil, errors.New("image is required (base64)")
	}
	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("image must be valid base64")
	}
	return image, nil
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := s.companion.ListMemories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	var req memoryRequest
	if !decode(w, r, &req) {
		return
	}

	memory, err := s.companion.AddMemory(r.Context(), req.Content, req.Category, req.Importance)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"memory": memory})
}

func (s *Server) handleSearchMemories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	topK := 0
	if k := r.URL.Query().Get("k"); k != "" {
		v, err := strconv.Atoi(k)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "k must be a non-negative integer"})
			return
		}
		topK = v
	}

	results, err := s.companion.SearchMemories(r.Context(), query, topK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []intelligence.ScoredMemory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": results})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	report, err := s.companion.ExtractMemories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req memoryRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.companion.UpdateMemory(r.Context(), id, req.Content); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.companion.DeleteMemory(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.companion.Messages(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.companion.DeleteMessage(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := s.companion.Profile(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.companion.State(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	delete(profile, storage.ProfileKeyPushToken)
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile, "state": state})
}

// handleSetProfile upserts every entry of a JSON object.
func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	var entries map[string]string
	if !decode(w, r, &entries) {
		return
	}
	if len(entries) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "at least one entry is required"})
		return
	}

	for key, value := range entries {
		if err := s.companion.SetProfile(r.Context(), key, value); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.companion.RegisterPushToken(r.Context(), req.Token); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	messages, err := s.companion.Gallery(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	images := make([]galleryImage, 0, len(messages))
	for _, m := range messages {
		images = append(images, galleryImage{
			ID:        m.ID,
			ImageURL:  m.ImageURL,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Role:      m.Role,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

// writeError maps companion errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateMemory):
		status = http.StatusConflict
	case errors.Is(err, intelligence.ErrParse):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}
