package server

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/storehouse-ng/storefront-chat/internal/chat"
	"github.com/storehouse-ng/storefront-chat/internal/convstate"
	"github.com/storehouse-ng/storefront-chat/internal/guard"
	"github.com/storehouse-ng/storefront-chat/internal/language"
	"github.com/storehouse-ng/storefront-chat/internal/models"
)

const (
	maxMessageRunes  = 2000
	maxSessionIDLen  = 128
	defaultEventPage = 50
	maxEventPage     = 500
)

// ChatHandler answers shopper messages.
type ChatHandler interface {
	HandleChat(ctx context.Context, req chat.Request) chat.Result
}

// SessionManager reads and resets conversation state.
type SessionManager interface {
	Get(ctx context.Context, sessionID string) (convstate.State, bool, error)
	Reset(ctx context.Context, sessionID string) error
}

// EventLister reads the chat event log.
type EventLister interface {
	ListEvents(ctx context.Context, f models.EventFilter) ([]models.ChatEvent, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	chat     ChatHandler
	sessions SessionManager
	events   EventLister
	langs    *language.Table
	logger   zerolog.Logger
}

// ClassifyRequest is the body of POST /api/v1/admin/classify.
type ClassifyRequest struct {
	Message string `json:"message"`
}

// ClassifyResponse reports what the guardrails make of a message.
type ClassifyResponse struct {
	Verdict  guard.Verdict `json:"verdict"`
	Language string        `json:"language"`
}

// EventListResponse wraps a page of chat events.
type EventListResponse struct {
	Events []models.ChatEvent `json:"events"`
	Count  int                `json:"count"`
}

// Chat handles POST /api/v1/chat.
func (h *Handlers) Chat(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body")
	}

	req.StoreSlug = strings.TrimSpace(req.StoreSlug)
	if strings.TrimSpace(req.Message) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_message", "Bad Request",
			"Message is required")
	}
	if utf8.RuneCountInString(req.Message) > maxMessageRunes {
		return problemResponse(c, fiber.StatusBadRequest,
			"message_too_long", "Bad Request",
			"Message is too long")
	}
	if req.StoreSlug == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_store_slug", "Bad Request",
			"store_slug is required")
	}
	if len(req.SessionID) > maxSessionIDLen {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_session_id", "Bad Request",
			"session_id is too long")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	res := h.chat.HandleChat(c.UserContext(), req)
	if res.StoreNotFound {
		return c.Status(fiber.StatusNotFound).JSON(res)
	}
	return c.JSON(res)
}

// GetSession handles GET /api/v1/admin/sessions/:id.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	state, ok, err := h.sessions.Get(c.UserContext(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", id).Msg("get session failed")
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"state_unavailable", "Service Unavailable",
			"Conversation state is unavailable")
	}
	if !ok {
		return problemResponse(c, fiber.StatusNotFound,
			"session_not_found", "Not Found",
			"Session not found: "+id)
	}
	return c.JSON(state)
}

// ResetSession handles DELETE /api/v1/admin/sessions/:id.
func (h *Handlers) ResetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.sessions.Reset(c.UserContext(), id); err != nil {
		h.logger.Error().Err(err).Str("session_id", id).Msg("reset session failed")
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"state_unavailable", "Service Unavailable",
			"Conversation state is unavailable")
	}
	subject, _ := c.Locals("subject").(string)
	h.logger.Info().Str("session_id", id).Str("by", subject).Msg("session reset")
	return c.SendStatus(fiber.StatusNoContent)
}

// Classify handles POST /api/v1/admin/classify.
func (h *Handlers) Classify(c *fiber.Ctx) error {
	var req ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body")
	}
	if req.Message == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_message", "Bad Request",
			"Message is required")
	}
	return c.JSON(ClassifyResponse{
		Verdict:  guard.Classify(req.Message),
		Language: string(h.langs.Detect(req.Message)),
	})
}

// ListEvents handles GET /api/v1/admin/events.
func (h *Handlers) ListEvents(c *fiber.Ctx) error {
	if h.events == nil {
		return problemResponse(c, fiber.StatusNotImplemented,
			"events_disabled", "Not Implemented",
			"The chat event log needs the sqlite state backend")
	}

	limit := c.QueryInt("limit", defaultEventPage)
	if limit <= 0 || limit > maxEventPage {
		limit = defaultEventPage
	}
	events, err := h.events.ListEvents(c.UserContext(), models.EventFilter{
		StoreSlug: c.Query("store"),
		SessionID: c.Query("session"),
		Limit:     limit,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("list events failed")
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"events_unavailable", "Service Unavailable",
			"The chat event log is unavailable")
	}
	if events == nil {
		events = []models.ChatEvent{}
	}
	return c.JSON(EventListResponse{Events: events, Count: len(events)})
}
