package handlers

import (
	"net/http"

	"attendtrack/backend/internal/assistant"
	"attendtrack/backend/internal/gateway/util"
)

// AssistantHandler exposes the generative-AI helper endpoint.
type AssistantHandler struct {
	Client *assistant.Client
}

// AskRequest mirrors the JSON input for POST /assistant/ask.
type AskRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// Ask handles POST /assistant/ask.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	text, err := h.Client.Generate(r.Context(), req.Prompt)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"text": text})
}
