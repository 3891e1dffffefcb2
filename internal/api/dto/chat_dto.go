package dto

import "github.com/spec-kit/noc-incidents/internal/router"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// ChatResponse carries the reply and the session transcript.
type ChatResponse struct {
	Response router.Response   `json:"response"`
	History  []router.Exchange `json:"history"`
}
