package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/noc-incidents/internal/api/dto"
	"github.com/spec-kit/noc-incidents/internal/router"
	apperrors "github.com/spec-kit/noc-incidents/pkg/util/errorutil"
)

// ChatHandler serves the support chat.
type ChatHandler struct {
	sessions *router.Sessions
}

// NewChatHandler constructs handler.
func NewChatHandler(sessions *router.Sessions) *ChatHandler {
	return &ChatHandler{sessions: sessions}
}

// Chat POST /chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return apperrors.NewValidationError("session_id required", nil)
	}

	r := h.sessions.Get(req.SessionID)
	resp := r.Route(c.UserContext(), req.Query)
	return c.JSON(fiber.Map{"data": dto.ChatResponse{Response: resp, History: r.History()}})
}
