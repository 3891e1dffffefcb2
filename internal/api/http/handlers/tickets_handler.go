package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/noc-incidents/internal/api/dto"
	"github.com/spec-kit/noc-incidents/internal/repository"
)

// TicketsHandler serves the read-only ticket endpoints.
type TicketsHandler struct {
	store repository.TicketStore
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(store repository.TicketStore) *TicketsHandler {
	return &TicketsHandler{store: store}
}

// ListTickets GET /tickets, in creation order.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.store.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.store.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}
