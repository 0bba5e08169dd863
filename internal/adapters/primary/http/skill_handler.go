package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/service-desk-routing/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-routing/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// SkillHandler serves the skill catalog.
type SkillHandler struct {
	catalog      ports.SkillCatalog
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSkillHandler creates a new skill handler
func NewSkillHandler(catalog ports.SkillCatalog, errorHandler *ErrorHandler, logger *slog.Logger) *SkillHandler {
	return &SkillHandler{
		catalog:      catalog,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "skill"),
	}
}

// RegisterRoutes sets up the routing for all skill endpoints.
func (h *SkillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListSkills)
	r.With(mw.RequireAdmin).Post("/", h.HandleCreateSkill)

	r.Route("/{skillID}", func(r chi.Router) {
		r.Get("/", h.HandleGetSkill)
		r.With(mw.RequireAdmin).Patch("/", h.HandleRenameSkill)
	})
}

// SkillRequest defines the JSON body for creating or renaming a skill
type SkillRequest struct {
	Name string `json:"name"`
}

// Validate validates the skill request
func (r *SkillRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxSkillNameLength)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandleListSkills handles GET /skills
func (h *SkillHandler) HandleListSkills(w http.ResponseWriter, r *http.Request) {
	WriteList(w, toSkillDTOs(h.catalog.All(r.Context())))
}

// HandleCreateSkill handles POST /skills
func (h *SkillHandler) HandleCreateSkill(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[SkillRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	skill, err := h.catalog.Add(r.Context(), req.Name)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.Info("skill created", "skill_id", skill.ID, "name", skill.Name)
	WriteCreated(w, toSkillDTO(skill))
}

// HandleGetSkill handles GET /skills/{skillID}
func (h *SkillHandler) HandleGetSkill(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(r, "skillID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	skill, err := h.catalog.Resolve(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toSkillDTO(skill))
}

// HandleRenameSkill handles PATCH /skills/{skillID}
func (h *SkillHandler) HandleRenameSkill(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseIDParam(r, "skillID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeAndValidate[SkillRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	skill, err := h.catalog.Rename(r.Context(), id, req.Name)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.Info("skill renamed", "skill_id", skill.ID, "name", skill.Name)
	WriteJSON(w, http.StatusOK, toSkillDTO(skill))
}
