package http

import (
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-routing/internal/auth"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/mocks"
)

func newTechnicianRouter(svc *mocks.MockTechnicianService) stdhttp.Handler {
	handler := NewTechnicianHandler(svc, NewErrorHandler(testLogger()), testLogger())
	return newTestRouter("/technicians", handler.RegisterRoutes)
}

func sampleTechnician() *domain.Technician {
	return &domain.Technician{
		ID:                 3,
		Name:               "Ada",
		SkillLevel:         domain.SkillLevelSenior,
		Specialization:     "Networking",
		AvailabilityStatus: domain.AvailabilityAvailable,
		Skills:             []domain.TechnicianSkill{{SkillID: 1, Proficiency: 90}},
		Capacity:           4,
		ActiveTicketIDs:    []int64{10},
		SatisfactionRating: 4.6,
		IsActive:           true,
		CreatedAt:          time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestTechnicianHandler_Register(t *testing.T) {
	t.Run("defaults availability and active flag", func(t *testing.T) {
		svc := mocks.NewMockTechnicianService()
		svc.On("RegisterTechnician", mock.Anything, mock.MatchedBy(func(p domain.TechnicianParams) bool {
			return p.Name == "Ada" &&
				p.AvailabilityStatus == domain.AvailabilityAvailable &&
				p.IsActive &&
				len(p.Skills) == 1 && p.Skills[0].Proficiency == 90
		})).Return(sampleTechnician(), nil)

		rec := doRequest(t, newTechnicianRouter(svc), stdhttp.MethodPost, "/technicians", map[string]any{
			"name":           "Ada",
			"skill_level":    "senior",
			"specialization": "Networking",
			"skills":         []map[string]int{{"skill_id": 1, "proficiency": 90}},
			"capacity":       4,
		}, tokenFor(t, auth.RoleAdmin))

		require.Equal(t, stdhttp.StatusCreated, rec.Code)
		body := decodeBody[TechnicianDTO](t, rec)
		assert.Equal(t, int64(3), body.ID)
		assert.Equal(t, 1, body.CurrentWorkload)
		assert.InDelta(t, 0.25, body.WorkloadRatio, 1e-9)
		assert.Equal(t, "2026-03-01T08:00:00Z", body.CreatedAt)
		svc.AssertExpectations(t)
	})

	t.Run("invalid profile fields", func(t *testing.T) {
		svc := mocks.NewMockTechnicianService()

		rec := doRequest(t, newTechnicianRouter(svc), stdhttp.MethodPost, "/technicians", map[string]any{
			"name":                "",
			"skill_level":         "guru",
			"availability_status": "napping",
			"capacity":            -1,
			"skills":              []map[string]int{{"skill_id": 1, "proficiency": 140}},
		}, tokenFor(t, auth.RoleAdmin))

		require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
		fields := decodeBody[ValidationErrorResponse](t, rec).Fields
		for _, f := range []string{"name", "skill_level", "availability_status", "capacity", "skills"} {
			assert.Contains(t, fields, f)
		}
		svc.AssertNotCalled(t, "RegisterTechnician", mock.Anything, mock.Anything)
	})

	t.Run("unknown skill id from the catalog", func(t *testing.T) {
		svc := mocks.NewMockTechnicianService()
		svc.On("RegisterTechnician", mock.Anything, mock.Anything).Return(nil, apperrors.ErrSkillNotFound)

		rec := doRequest(t, newTechnicianRouter(svc), stdhttp.MethodPost, "/technicians", map[string]any{
			"name": "Ada", "skill_level": "mid", "capacity": 2,
			"skills": []map[string]int{{"skill_id": 99, "proficiency": 50}},
		}, tokenFor(t, auth.RoleAdmin))

		assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	})
}

func TestTechnicianHandler_Availability(t *testing.T) {
	svc := mocks.NewMockTechnicianService()
	busy := sampleTechnician()
	busy.AvailabilityStatus = domain.AvailabilityInMeeting
	svc.On("SetAvailability", mock.Anything, int64(3), domain.AvailabilityInMeeting).Return(busy, nil)
	router := newTechnicianRouter(svc)

	rec := doRequest(t, router, stdhttp.MethodPatch, "/technicians/3/availability",
		map[string]string{"availability_status": "in_meeting"}, tokenFor(t, auth.RoleAgent))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "in_meeting", decodeBody[TechnicianDTO](t, rec).AvailabilityStatus)

	rec = doRequest(t, router, stdhttp.MethodPatch, "/technicians/3/availability",
		map[string]string{"availability_status": "napping"}, tokenFor(t, auth.RoleAgent))
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
}

func TestTechnicianHandler_Scores(t *testing.T) {
	computed := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	snapshot := domain.ScoreSnapshot{
		TechnicianID: 3,
		Components:   domain.ScoreComponents{ResolutionTime: 92, CustomerImpact: 88, SLACompliance: 95, TicketComplexity: 80, Quality: 86},
		Overall:      89.2,
		ComputedAt:   computed,
	}

	svc := mocks.NewMockTechnicianService()
	svc.On("ListScores", mock.Anything).Return([]domain.ScoreSnapshot{snapshot}, nil)
	svc.On("GetScore", mock.Anything, int64(3)).Return(&snapshot, nil)
	svc.On("GetScore", mock.Anything, int64(4)).Return(nil, apperrors.ErrTechnicianNotFound)
	router := newTechnicianRouter(svc)

	rec := doRequest(t, router, stdhttp.MethodGet, "/technicians/scores", nil, tokenFor(t, auth.RoleAgent))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	list := decodeBody[ListResponse[ScoreDTO]](t, rec)
	require.Len(t, list.Data, 1)
	assert.Equal(t, 89.2, list.Data[0].Overall)

	rec = doRequest(t, router, stdhttp.MethodGet, "/technicians/3/score", nil, tokenFor(t, auth.RoleAgent))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	score := decodeBody[ScoreDTO](t, rec)
	assert.Equal(t, 95.0, score.Components.SLACompliance)
	assert.Equal(t, "2026-03-02T09:30:00Z", score.ComputedAt)

	rec = doRequest(t, router, stdhttp.MethodGet, "/technicians/4/score", nil, tokenFor(t, auth.RoleAgent))
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Equal(t, "TECHNICIAN_NOT_FOUND", decodeBody[ErrorResponse](t, rec).Code)
}

func TestTechnicianHandler_RecordOutcome(t *testing.T) {
	svc := mocks.NewMockTechnicianService()
	svc.On("RecordOutcome", mock.Anything, mock.MatchedBy(func(o domain.TicketOutcome) bool {
		return o.TicketID == 55 && o.TechnicianID == 3 && o.ResolutionDuration() == 2*time.Hour
	})).Return(nil)
	router := newTechnicianRouter(svc)

	payload := map[string]any{
		"ticket_id":   55,
		"priority":    "high",
		"impact":      "medium",
		"urgency":     "normal",
		"opened_at":   "2026-03-01T08:00:00Z",
		"resolved_at": "2026-03-01T10:00:00Z",
	}

	rec := doRequest(t, router, stdhttp.MethodPost, "/technicians/3/outcomes", payload, tokenFor(t, auth.RoleAdmin))
	require.Equal(t, stdhttp.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)

	rec = doRequest(t, router, stdhttp.MethodPost, "/technicians/3/outcomes", `{"ticket_id":`, tokenFor(t, auth.RoleAdmin))
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestTechnicianHandler_Workload(t *testing.T) {
	light := *sampleTechnician()
	heavy := *sampleTechnician()
	heavy.ID = 4
	heavy.Name = "Grace"
	heavy.ActiveTicketIDs = []int64{11, 12, 13}

	svc := mocks.NewMockTechnicianService()
	svc.On("ListTechnicians", mock.Anything).Return([]domain.Technician{light, heavy}, nil)

	rec := doRequest(t, newTechnicianRouter(svc), stdhttp.MethodGet, "/technicians/workload", nil, tokenFor(t, auth.RoleAgent))
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	body := decodeBody[ListResponse[WorkloadDTO]](t, rec)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, int64(4), body.Data[0].TechnicianID)
	assert.Equal(t, 3, body.Data[0].ActiveTickets)
	assert.InDelta(t, 0.75, body.Data[0].WorkloadRatio, 1e-9)
	assert.Equal(t, int64(3), body.Data[1].TechnicianID)
}
