package http

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/service-desk-routing/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-routing/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

const maxTechnicianCapacity = 100

var (
	skillLevels        = []string{"junior", "mid", "senior", "expert"}
	ticketLevels       = []string{"low", "normal", "high", "critical"}
	ticketImpactLevels = []string{"low", "medium", "high", "critical"}
)

func availabilityStatuses() []string {
	out := make([]string, 0, len(domain.AllAvailabilityStatuses))
	for _, s := range domain.AllAvailabilityStatuses {
		out = append(out, string(s))
	}
	return out
}

// TechnicianHandler handles technician profiles, availability and scores.
type TechnicianHandler struct {
	technicianService ports.TechnicianService
	errorHandler      *ErrorHandler
	logger            *slog.Logger
}

// NewTechnicianHandler creates a new technician handler
func NewTechnicianHandler(
	technicianService ports.TechnicianService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TechnicianHandler {
	return &TechnicianHandler{
		technicianService: technicianService,
		errorHandler:      errorHandler,
		logger:            logger.With("handler", "technician"),
	}
}

// RegisterRoutes sets up the routing for all technician endpoints.
func (h *TechnicianHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTechnicians)
	r.With(mw.RequireAdmin).Post("/", h.HandleRegisterTechnician)
	r.Get("/scores", h.HandleListScores)
	r.Get("/workload", h.HandleWorkload)

	r.Route("/{technicianID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTechnician)
		r.With(mw.RequireAdmin).Put("/", h.HandleUpdateProfile)
		r.Patch("/availability", h.HandleSetAvailability)
		r.Get("/score", h.HandleGetScore)
		r.With(mw.RequireAdmin).Post("/outcomes", h.HandleRecordOutcome)
	})
}

// --- Request DTOs ---

// TechnicianRequest defines the JSON body for creating or replacing a profile
type TechnicianRequest struct {
	Name               string               `json:"name"`
	SkillLevel         string               `json:"skill_level"`
	Specialization     string               `json:"specialization"`
	AvailabilityStatus string               `json:"availability_status"`
	Skills             []TechnicianSkillDTO `json:"skills"`
	Capacity           int                  `json:"capacity"`
	SatisfactionRating float64              `json:"satisfaction_rating"`
	IsActive           *bool                `json:"is_active"`
}

// Validate validates the technician request
func (r *TechnicianRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxTechnicianNameLength)
	v.Required("skill_level", r.SkillLevel).
		OneOf("skill_level", r.SkillLevel, skillLevels)
	v.OneOf("availability_status", r.AvailabilityStatus, availabilityStatuses())
	v.Range("capacity", r.Capacity, 0, maxTechnicianCapacity)
	v.FloatRange("satisfaction_rating", &r.SatisfactionRating, 0, 5)

	for _, s := range r.Skills {
		v.Custom("skills", s.SkillID > 0, "Skill ids must be positive integers")
		v.Custom("skills", s.Proficiency >= 0 && s.Proficiency <= 100, "Proficiency must be between 0 and 100")
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

func (r *TechnicianRequest) params() domain.TechnicianParams {
	status := domain.AvailabilityStatus(r.AvailabilityStatus)
	if status == "" {
		status = domain.AvailabilityAvailable
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	skills := make([]domain.TechnicianSkill, 0, len(r.Skills))
	for _, s := range r.Skills {
		skills = append(skills, domain.TechnicianSkill{SkillID: s.SkillID, Proficiency: s.Proficiency})
	}

	return domain.TechnicianParams{
		Name:               r.Name,
		SkillLevel:         domain.SkillLevel(r.SkillLevel),
		Specialization:     r.Specialization,
		AvailabilityStatus: status,
		Skills:             skills,
		Capacity:           r.Capacity,
		SatisfactionRating: r.SatisfactionRating,
		IsActive:           active,
	}
}

// AvailabilityRequest defines the JSON body for availability changes
type AvailabilityRequest struct {
	AvailabilityStatus string `json:"availability_status"`
}

// Validate validates the availability request
func (r *AvailabilityRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("availability_status", r.AvailabilityStatus).
		OneOf("availability_status", r.AvailabilityStatus, availabilityStatuses())
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// OutcomeRequest defines the JSON body for a closed-ticket history record
type OutcomeRequest struct {
	TicketID           int64     `json:"ticket_id"`
	Priority           string    `json:"priority"`
	Impact             string    `json:"impact"`
	Urgency            string    `json:"urgency"`
	RequiredSkillCount int       `json:"required_skill_count"`
	OpenedAt           time.Time `json:"opened_at"`
	ResolvedAt         time.Time `json:"resolved_at"`
	SatisfactionRating *float64  `json:"satisfaction_rating"`
	Reopened           bool      `json:"reopened"`
}

// Validate validates the outcome request
func (r *OutcomeRequest) Validate() error {
	v := validation.NewValidator()
	v.Custom("ticket_id", r.TicketID > 0, "Must be a positive integer id")
	v.Required("priority", r.Priority).OneOf("priority", r.Priority, ticketLevels)
	v.Required("impact", r.Impact).OneOf("impact", r.Impact, ticketImpactLevels)
	v.Required("urgency", r.Urgency).OneOf("urgency", r.Urgency, ticketLevels)
	v.Min("required_skill_count", r.RequiredSkillCount, 0)
	v.Custom("opened_at", !r.OpenedAt.IsZero(), "This field is required")
	v.Custom("resolved_at", !r.ResolvedAt.IsZero(), "This field is required")
	v.FloatRange("satisfaction_rating", r.SatisfactionRating, 0, 5)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleListTechnicians handles GET /technicians
func (h *TechnicianHandler) HandleListTechnicians(w http.ResponseWriter, r *http.Request) {
	techs, err := h.technicianService.ListTechnicians(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, toTechnicianDTOs(techs))
}

// HandleWorkload handles GET /technicians/workload. Busiest technicians
// come first.
func (h *TechnicianHandler) HandleWorkload(w http.ResponseWriter, r *http.Request) {
	techs, err := h.technicianService.ListTechnicians(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	items := make([]domain.WorkloadItem, 0, len(techs))
	for _, t := range techs {
		items = append(items, domain.NewWorkloadItem(t))
	}
	slices.SortStableFunc(items, func(a, b domain.WorkloadItem) int {
		return cmp.Compare(b.WorkloadRatio, a.WorkloadRatio)
	})
	WriteList(w, toWorkloadDTOs(items))
}

// HandleRegisterTechnician handles POST /technicians
func (h *TechnicianHandler) HandleRegisterTechnician(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[TechnicianRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	tech, err := h.technicianService.RegisterTechnician(r.Context(), req.params())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "technician registered", "technician_id", tech.ID)
	WriteCreated(w, toTechnicianDTO(*tech))
}

// HandleGetTechnician handles GET /technicians/{technicianID}
func (h *TechnicianHandler) HandleGetTechnician(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(r, "technicianID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	tech, err := h.technicianService.GetTechnician(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteJSON(w, http.StatusOK, toTechnicianDTO(*tech))
}

// HandleUpdateProfile handles PUT /technicians/{technicianID}
func (h *TechnicianHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(r, "technicianID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[TechnicianRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	tech, err := h.technicianService.UpdateProfile(r.Context(), id, req.params())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "technician profile updated", "technician_id", id)
	WriteJSON(w, http.StatusOK, toTechnicianDTO(*tech))
}

// HandleSetAvailability handles PATCH /technicians/{technicianID}/availability
func (h *TechnicianHandler) HandleSetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(r, "technicianID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[AvailabilityRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	tech, err := h.technicianService.SetAvailability(r.Context(), id, domain.AvailabilityStatus(req.AvailabilityStatus))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "technician availability changed",
		"technician_id", id,
		"availability_status", req.AvailabilityStatus,
	)
	WriteJSON(w, http.StatusOK, toTechnicianDTO(*tech))
}

// HandleGetScore handles GET /technicians/{technicianID}/score
func (h *TechnicianHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(r, "technicianID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	score, err := h.technicianService.GetScore(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteJSON(w, http.StatusOK, toScoreDTO(*score))
}

// HandleListScores handles GET /technicians/scores
func (h *TechnicianHandler) HandleListScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.technicianService.ListScores(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, toScoreDTOs(scores))
}

// HandleRecordOutcome handles POST /technicians/{technicianID}/outcomes
func (h *TechnicianHandler) HandleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(r, "technicianID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[OutcomeRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	outcome := domain.TicketOutcome{
		TicketID:           req.TicketID,
		TechnicianID:       id,
		Priority:           domain.TicketPriority(req.Priority),
		Impact:             domain.TicketImpact(req.Impact),
		Urgency:            domain.TicketUrgency(req.Urgency),
		RequiredSkillCount: req.RequiredSkillCount,
		OpenedAt:           req.OpenedAt.UTC(),
		ResolvedAt:         req.ResolvedAt.UTC(),
		SatisfactionRating: req.SatisfactionRating,
		Reopened:           req.Reopened,
	}
	if HandleError(w, r, h.technicianService.RecordOutcome(r.Context(), outcome), h.errorHandler) {
		return
	}

	WriteNoContent(w)
}
