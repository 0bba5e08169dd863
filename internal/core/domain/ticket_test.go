package domain_test

import (
	"strings"
	"testing"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_Rank(t *testing.T) {
	tests := []struct {
		name  string
		level domain.Level
		want  int
	}{
		{"low", domain.LevelLow, 0},
		{"normal", domain.LevelNormal, 1},
		{"high", domain.LevelHigh, 2},
		{"critical", domain.LevelCritical, 3},
		{"empty is unknown", domain.Level(""), -1},
		{"uppercase is unknown", domain.Level("HIGH"), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.Rank())
			assert.Equal(t, tt.want >= 0, tt.level.IsValid())
		})
	}
}

func TestLevel_IsExpedited(t *testing.T) {
	assert.False(t, domain.PriorityLow.IsExpedited())
	assert.False(t, domain.PriorityNormal.IsExpedited())
	assert.True(t, domain.PriorityHigh.IsExpedited())
	assert.True(t, domain.PriorityCritical.IsExpedited())
}

func TestTicketImpact_IsValid(t *testing.T) {
	assert.True(t, domain.ImpactMedium.IsValid())
	assert.Equal(t, 3, domain.ImpactCritical.Rank())
	assert.False(t, domain.TicketImpact("normal").IsValid())
}

func TestTicketStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status domain.TicketStatus
		want   bool
	}{
		{domain.StatusNew, false},
		{domain.StatusAssigned, false},
		{domain.StatusInProgress, false},
		{domain.StatusOnHold, false},
		{domain.StatusResolved, true},
		{domain.StatusClosed, true},
		{domain.StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.IsValid())
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestNewTicket(t *testing.T) {
	tests := []struct {
		name        string
		params      domain.TicketParams
		expectError bool
		errorField  string
	}{
		{
			name: "valid ticket",
			params: domain.TicketParams{
				Title:            "VPN drops every hour",
				RequiredSkillIDs: []int64{2, 5},
				Priority:         domain.PriorityHigh,
				Impact:           domain.ImpactHigh,
				Urgency:          domain.LevelCritical,
			},
		},
		{
			name:        "missing title",
			params:      domain.TicketParams{Priority: domain.PriorityLow},
			expectError: true,
			errorField:  "title",
		},
		{
			name:        "title too long",
			params:      domain.TicketParams{Title: strings.Repeat("a", 256)},
			expectError: true,
			errorField:  "title",
		},
		{
			name:        "description too long",
			params:      domain.TicketParams{Title: "Disk full", Description: strings.Repeat("a", 10001)},
			expectError: true,
			errorField:  "description",
		},
		{
			name:        "invalid priority",
			params:      domain.TicketParams{Title: "Disk full", Priority: "urgent"},
			expectError: true,
			errorField:  "priority",
		},
		{
			name:        "invalid impact",
			params:      domain.TicketParams{Title: "Disk full", Impact: "enormous"},
			expectError: true,
			errorField:  "impact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := domain.NewTicket(tt.params)

			if tt.expectError {
				require.Error(t, err)
				assert.Nil(t, ticket)

				var verrs *apperrors.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Contains(t, verrs.Errors, tt.errorField)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.params.Title, ticket.Title)
			assert.Equal(t, domain.StatusNew, ticket.Status)
			assert.Nil(t, ticket.AssignedTechnicianID)
			assert.False(t, ticket.CreatedAt.IsZero())
		})
	}

	t.Run("defaults and dedupe", func(t *testing.T) {
		ticket, err := domain.NewTicket(domain.TicketParams{
			Title:            "Printer jam",
			RequiredSkillIDs: []int64{4, 4, 1},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PriorityNormal, ticket.Priority)
		assert.Equal(t, domain.ImpactMedium, ticket.Impact)
		assert.Equal(t, domain.LevelNormal, ticket.Urgency)
		assert.Equal(t, []int64{4, 1}, ticket.RequiredSkillIDs)
	})
}

func TestTicket_UpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.TicketStatus
		to      domain.TicketStatus
		wantErr error
	}{
		{"assigned to in progress", domain.StatusAssigned, domain.StatusInProgress, nil},
		{"in progress to on hold", domain.StatusInProgress, domain.StatusOnHold, nil},
		{"on hold to resolved", domain.StatusOnHold, domain.StatusResolved, nil},
		{"resolved to closed", domain.StatusResolved, domain.StatusClosed, nil},
		{"new to cancelled", domain.StatusNew, domain.StatusCancelled, nil},
		{"new to in progress", domain.StatusNew, domain.StatusInProgress, apperrors.ErrInvalidStatusTransition},
		{"closed is final", domain.StatusClosed, domain.StatusInProgress, apperrors.ErrInvalidStatusTransition},
		{"resolved cannot reopen", domain.StatusResolved, domain.StatusInProgress, apperrors.ErrInvalidStatusTransition},
		{"unknown status", domain.StatusAssigned, domain.TicketStatus("archived"), apperrors.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &domain.Ticket{ID: 1, Status: tt.from}
			err := ticket.UpdateStatus(tt.to)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, ticket.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, ticket.Status)
			assert.NotNil(t, ticket.UpdatedAt)
		})
	}

	t.Run("resolution stamps resolved_at once", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, Status: domain.StatusInProgress}
		require.NoError(t, ticket.UpdateStatus(domain.StatusResolved))
		require.NotNil(t, ticket.ResolvedAt)
		resolved := *ticket.ResolvedAt

		require.NoError(t, ticket.UpdateStatus(domain.StatusClosed))
		assert.Equal(t, resolved, *ticket.ResolvedAt)
	})
}

func TestTicket_Assign(t *testing.T) {
	t.Run("new ticket", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, Status: domain.StatusNew}
		require.NoError(t, ticket.Assign(3))
		assert.Equal(t, domain.StatusAssigned, ticket.Status)
		assert.True(t, ticket.IsAssignedTo(3))
		assert.False(t, ticket.IsAssignedTo(4))
	})

	t.Run("terminal ticket is frozen", func(t *testing.T) {
		for _, status := range []domain.TicketStatus{domain.StatusResolved, domain.StatusClosed, domain.StatusCancelled} {
			ticket := &domain.Ticket{ID: 1, Status: status}
			assert.ErrorIs(t, ticket.Assign(3), apperrors.ErrTicketTerminal)
			assert.ErrorIs(t, ticket.Unassign(), apperrors.ErrTicketTerminal)
			assert.False(t, ticket.IsAssigned())
		}
	})

	t.Run("unassign returns to new", func(t *testing.T) {
		ticket := &domain.Ticket{ID: 1, Status: domain.StatusNew}
		require.NoError(t, ticket.Assign(3))
		require.NoError(t, ticket.Unassign())
		assert.Equal(t, domain.StatusNew, ticket.Status)
		assert.Nil(t, ticket.AssignedTechnicianID)
	})
}

func TestTicket_Clone(t *testing.T) {
	technician := int64(2)
	original := domain.Ticket{ID: 1, RequiredSkillIDs: []int64{1, 2}, AssignedTechnicianID: &technician}

	clone := original.Clone()
	clone.RequiredSkillIDs[0] = 9
	*clone.AssignedTechnicianID = 8

	assert.Equal(t, []int64{1, 2}, original.RequiredSkillIDs)
	assert.Equal(t, int64(2), *original.AssignedTechnicianID)
}

func TestTicket_RoutingState(t *testing.T) {
	ticket := &domain.Ticket{ID: 1, Status: domain.StatusNew}
	before := ticket.RoutingState()
	assert.Equal(t, domain.RoutingState{Status: domain.StatusNew}, before)

	require.NoError(t, ticket.Assign(4))
	after := ticket.RoutingState()
	assert.Equal(t, domain.StatusAssigned, after.Status)
	require.NotNil(t, after.AssignedTechnicianID)

	// The captured state does not follow later changes.
	*ticket.AssignedTechnicianID = 9
	assert.Equal(t, int64(4), *after.AssignedTechnicianID)
	assert.Nil(t, before.AssignedTechnicianID)
}
