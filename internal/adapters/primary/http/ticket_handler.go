package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-routing/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
	"github.com/lorrc/service-desk-routing/internal/infrastructure/logging"
)

var ticketStatuses = []string{"new", "assigned", "in_progress", "on_hold", "resolved", "closed", "cancelled"}

// TicketHandler handles HTTP requests for tickets and their routing
type TicketHandler struct {
	ticketService ports.TicketService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
	routing       []func(http.Handler) http.Handler
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "ticket"),
	}
}

// WithRoutingMiddleware wraps the assign and reassign endpoints, typically
// with a per-operator rate limiter.
func (h *TicketHandler) WithRoutingMiddleware(middlewares ...func(http.Handler) http.Handler) *TicketHandler {
	h.routing = append(h.routing, middlewares...)
	return h
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateTicket)

	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Patch("/status", h.HandleUpdateTicketStatus)
		r.Get("/assignments", h.HandleListAssignments)
		r.Get("/justification", h.HandleGetJustification)

		r.Group(func(r chi.Router) {
			r.Use(h.routing...)
			r.Post("/assign", h.HandleAssignTicket)
			r.Post("/reassign", h.HandleReassignTicket)
		})
	})
}

// --- Request DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	RequiredSkills []int64 `json:"required_skills"`
	Priority       string  `json:"priority"`
	Impact         string  `json:"impact"`
	Urgency        string  `json:"urgency"`
}

// Validate validates the create ticket request
func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)
	v.MaxLength("description", r.Description, domain.MaxDescriptionLength)
	v.PositiveIDs("required_skills", r.RequiredSkills)
	v.OneOf("priority", r.Priority, ticketLevels)
	v.OneOf("impact", r.Impact, ticketImpactLevels)
	v.OneOf("urgency", r.Urgency, ticketLevels)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateStatusRequest defines the expected JSON body for status updates
type UpdateStatusRequest struct {
	Status             string   `json:"status"`
	SatisfactionRating *float64 `json:"satisfaction_rating"`
}

// Validate validates the update status request
func (r *UpdateStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, ticketStatuses)
	v.FloatRange("satisfaction_rating", r.SatisfactionRating, 0, 5)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	result, err := h.ticketService.CreateTicket(r.Context(), ports.CreateTicketParams{
		Title:            req.Title,
		Description:      req.Description,
		RequiredSkillIDs: req.RequiredSkills,
		Priority:         domain.TicketPriority(req.Priority),
		Impact:           domain.TicketImpact(req.Impact),
		Urgency:          domain.TicketUrgency(req.Urgency),
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	ctx := logging.WithTicketID(r.Context(), result.Ticket.ID)
	h.logger.InfoContext(ctx, "ticket created", "assigned", result.Assignment != nil)

	WriteCreated(w, toTicketResultDTO(result))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseIDParam(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ticketID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, domain.NewTicketSnapshot(ticket))
}

// HandleUpdateTicketStatus handles PATCH /tickets/{ticketID}/status
func (h *TicketHandler) HandleUpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseIDParam(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[UpdateStatusRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	ticket, err := h.ticketService.UpdateStatus(r.Context(), ports.UpdateStatusParams{
		TicketID:           ticketID,
		Status:             domain.TicketStatus(req.Status),
		SatisfactionRating: req.SatisfactionRating,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	ctx := logging.WithTicketID(r.Context(), ticketID)
	h.logger.InfoContext(ctx, "ticket status updated", "new_status", req.Status)

	WriteJSON(w, http.StatusOK, domain.NewTicketSnapshot(ticket))
}

// HandleAssignTicket handles POST /tickets/{ticketID}/assign
func (h *TicketHandler) HandleAssignTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseIDParam(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	result, err := h.ticketService.AssignTicket(r.Context(), ticketID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toTicketResultDTO(result))
}

// HandleReassignTicket handles POST /tickets/{ticketID}/reassign
func (h *TicketHandler) HandleReassignTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseIDParam(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	result, err := h.ticketService.ReassignTicket(r.Context(), ticketID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toTicketResultDTO(result))
}

// HandleListAssignments handles GET /tickets/{ticketID}/assignments
func (h *TicketHandler) HandleListAssignments(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseIDParam(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	records, err := h.ticketService.ListAssignments(r.Context(), ticketID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toAssignmentDTOs(records))
}

// HandleGetJustification handles GET /tickets/{ticketID}/justification
func (h *TicketHandler) HandleGetJustification(w http.ResponseWriter, r *http.Request) {
	ticketID, err := validation.ParseIDParam(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	view, err := h.ticketService.GetJustification(r.Context(), ticketID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toJustificationDTO(view))
}
