package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// TicketServiceDeps groups the collaborators of TicketService.
type TicketServiceDeps struct {
	Tickets     ports.TicketRepository
	Assignments ports.AssignmentRepository
	Catalog     ports.SkillCatalog
	Registry    ports.TechnicianRegistry
	Tracker     ports.WorkloadTracker
	Matcher     ports.Matcher
	Dispatcher  ports.AssignmentDispatcher
	Technicians ports.TechnicianService
	TxManager   ports.TransactionManager
	Notifier    ports.Notifier
	Broadcaster ports.EventBroadcaster
	Logger      *slog.Logger
}

// TicketService implements the ticket lifecycle around the assignment engine
type TicketService struct {
	tickets     ports.TicketRepository
	assignments ports.AssignmentRepository
	catalog     ports.SkillCatalog
	registry    ports.TechnicianRegistry
	tracker     ports.WorkloadTracker
	matcher     ports.Matcher
	dispatcher  ports.AssignmentDispatcher
	technicians ports.TechnicianService
	txManager   ports.TransactionManager
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
	wg          sync.WaitGroup

	// routing holds the ids of tickets with a routing decision in flight.
	routingMu sync.Mutex
	routing   map[int64]struct{}
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(deps TicketServiceDeps) *TicketService {
	return &TicketService{
		tickets:     deps.Tickets,
		assignments: deps.Assignments,
		catalog:     deps.Catalog,
		registry:    deps.Registry,
		tracker:     deps.Tracker,
		matcher:     deps.Matcher,
		dispatcher:  deps.Dispatcher,
		technicians: deps.Technicians,
		txManager:   deps.TxManager,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		logger:      deps.Logger.With("service", "ticket"),
		routing:     make(map[int64]struct{}),
	}
}

// CreateTicket persists a new ticket and routes it. A routing failure leaves
// the ticket in new for manual handling; it never fails the creation.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*ports.TicketResult, error) {
	// 1. Create domain entity with validation
	ticket, err := domain.NewTicket(domain.TicketParams{
		Title:            params.Title,
		Description:      params.Description,
		RequiredSkillIDs: params.RequiredSkillIDs,
		Priority:         params.Priority,
		Impact:           params.Impact,
		Urgency:          params.Urgency,
	})
	if err != nil {
		return nil, err
	}

	// 2. Required skills must be known
	if err := s.catalog.ValidateIDs(ctx, ticket.RequiredSkillIDs); err != nil {
		return nil, err
	}

	// 3. Persist the ticket
	created, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	// 4. Route through priority admission, unless the sweep got there first
	if !s.claim(created.ID) {
		return &ports.TicketResult{Ticket: created}, nil
	}
	defer s.unclaim(created.ID)

	routed := created.Clone()
	from := routed.RoutingState()
	record, err := s.dispatcher.Submit(ctx, &routed)
	if err != nil {
		s.logRoutingFailure(ctx, created.ID, err)
		return &ports.TicketResult{Ticket: created}, nil
	}

	// 5. Persist the decision, undoing the reservation if that fails
	saved, savedRecord, err := s.commitAssignment(ctx, &routed, from, record)
	if err != nil {
		s.compensate(record.TechnicianID, created.ID, nil)
		s.logger.ErrorContext(ctx, "failed to persist assignment",
			"ticket_id", created.ID,
			"technician_id", record.TechnicianID,
			"error", err,
		)
		return &ports.TicketResult{Ticket: created}, nil
	}

	s.announceAssignment(saved, savedRecord)
	return &ports.TicketResult{Ticket: saved, Assignment: savedRecord}, nil
}

// GetTicket retrieves a specific ticket
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// UpdateStatus moves a ticket through its work states. Assignment states
// are owned by the engine and cannot be set here.
func (s *TicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	// 1. new and assigned are reached only through routing
	switch params.Status {
	case domain.StatusInProgress, domain.StatusOnHold, domain.StatusResolved, domain.StatusClosed, domain.StatusCancelled:
	default:
		if !params.Status.IsValid() {
			return nil, apperrors.ErrInvalidStatus
		}
		return nil, apperrors.ErrInvalidStatusTransition
	}

	// 2. Fetch and apply the transition
	ticket, err := s.tickets.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}
	if err := ticket.UpdateStatus(params.Status); err != nil {
		return nil, err
	}

	// 3. Resolution may carry the requester's rating
	if params.SatisfactionRating != nil && (params.Status == domain.StatusResolved || params.Status == domain.StatusClosed) {
		rating := *params.SatisfactionRating
		if rating < 0 || rating > 5 {
			return nil, apperrors.ErrInvalidSatisfaction
		}
		ticket.SatisfactionRating = &rating
	}

	// 4. Persist changes
	updated, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		return nil, err
	}

	// 5. Terminal tickets free their technician
	if updated.Status.IsTerminal() && updated.AssignedTechnicianID != nil {
		if err := s.tracker.Release(*updated.AssignedTechnicianID, updated.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to release workload",
				"ticket_id", updated.ID,
				"technician_id", *updated.AssignedTechnicianID,
				"error", err,
			)
		}
	}

	// 6. Feed scoring history
	if outcome, ok := domain.OutcomeFromTicket(updated); ok {
		if err := s.technicians.RecordOutcome(ctx, outcome); err != nil {
			s.logger.WarnContext(ctx, "failed to record outcome",
				"ticket_id", updated.ID,
				"error", err,
			)
		}
	}

	// 7. Broadcast real-time event
	s.broadcast(domain.EventStatusUpdated, updated.ID, domain.NewTicketSnapshot(updated))

	return updated, nil
}

// AssignTicket routes an unassigned ticket on demand.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID int64) (*ports.TicketResult, error) {
	if !s.claim(ticketID) {
		return nil, apperrors.ErrRoutingConflict
	}
	defer s.unclaim(ticketID)

	// 1. Fetch the ticket
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsAssigned() {
		return nil, apperrors.NewConflictError(apperrors.ErrConflict, "Ticket is already assigned; use reassign")
	}
	from := ticket.RoutingState()

	// 2. Route through priority admission
	record, err := s.dispatcher.Submit(ctx, ticket)
	if err != nil {
		return nil, err
	}

	// 3. Persist, undoing the reservation on failure
	saved, savedRecord, err := s.commitAssignment(ctx, ticket, from, record)
	if err != nil {
		s.compensate(record.TechnicianID, ticketID, nil)
		return nil, err
	}

	s.announceAssignment(saved, savedRecord)
	return &ports.TicketResult{Ticket: saved, Assignment: savedRecord}, nil
}

// ReassignTicket moves a ticket to a different technician. When nobody else
// is eligible the ticket is returned to new and ErrNoEligibleTechnician is
// reported.
func (s *TicketService) ReassignTicket(ctx context.Context, ticketID int64) (*ports.TicketResult, error) {
	if !s.claim(ticketID) {
		return nil, apperrors.ErrRoutingConflict
	}
	defer s.unclaim(ticketID)

	// 1. Fetch the ticket
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	from := ticket.RoutingState()
	var prior *int64
	if ticket.AssignedTechnicianID != nil {
		id := *ticket.AssignedTechnicianID
		prior = &id
	}

	// 2. Let the matcher release and re-route
	record, err := s.matcher.Reassign(ctx, ticket)
	switch {
	case errors.Is(err, apperrors.ErrNoEligibleTechnician):
		if prior != nil {
			s.persistUnassigned(ctx, ticket, from, *prior)
		}
		return nil, err
	case errors.Is(err, apperrors.ErrTicketTerminal), errors.Is(err, apperrors.ErrTicketHeld):
		return nil, err
	case err != nil:
		s.compensate(0, ticketID, prior)
		return nil, err
	}

	// 3. Persist, restoring the prior holder on failure
	saved, savedRecord, err := s.commitAssignment(ctx, ticket, from, record)
	if err != nil {
		s.compensate(record.TechnicianID, ticketID, prior)
		return nil, err
	}

	s.announceAssignment(saved, savedRecord)
	return &ports.TicketResult{Ticket: saved, Assignment: savedRecord}, nil
}

// RetryUnassigned routes tickets still waiting in new, most urgent first, and
// reports how many were assigned. Individual routing failures are logged.
func (s *TicketService) RetryUnassigned(ctx context.Context, limit int) (int, error) {
	pending, err := s.tickets.ListUnassigned(ctx, limit)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, ticket := range pending {
		if ctx.Err() != nil {
			break
		}
		if s.retryOne(ctx, ticket) {
			assigned++
		}
	}

	if len(pending) > 0 {
		s.logger.InfoContext(ctx, "retried unassigned tickets",
			"pending", len(pending),
			"assigned", assigned,
		)
	}
	return assigned, nil
}

// retryOne routes a single swept ticket. Tickets another path is already
// routing are skipped.
func (s *TicketService) retryOne(ctx context.Context, ticket *domain.Ticket) bool {
	if !s.claim(ticket.ID) {
		return false
	}
	defer s.unclaim(ticket.ID)

	from := ticket.RoutingState()
	record, err := s.dispatcher.Submit(ctx, ticket)
	if err != nil {
		s.logRoutingFailure(ctx, ticket.ID, err)
		return false
	}
	saved, savedRecord, err := s.commitAssignment(ctx, ticket, from, record)
	if err != nil {
		s.compensate(record.TechnicianID, ticket.ID, nil)
		s.logger.ErrorContext(ctx, "failed to persist assignment",
			"ticket_id", ticket.ID,
			"technician_id", record.TechnicianID,
			"error", err,
		)
		return false
	}
	s.announceAssignment(saved, savedRecord)
	return true
}

// ListAssignments returns the assignment history of a ticket, oldest first.
func (s *TicketService) ListAssignments(ctx context.Context, ticketID int64) ([]*domain.AssignmentRecord, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.assignments.ListByTicketID(ctx, ticketID)
}

// GetJustification returns what the assignment tooltip shows for the
// ticket's current technician.
func (s *TicketService) GetJustification(ctx context.Context, ticketID int64) (*ports.JustificationView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsAssigned() {
		return nil, apperrors.NewNotFoundError(apperrors.ErrNotFound, "Ticket has no current assignment")
	}

	record, err := s.assignments.Latest(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	technician, err := s.registry.Get(record.TechnicianID)
	if err != nil {
		return nil, err
	}

	skills := make([]domain.Skill, 0, len(record.Justification.MatchingSkillIDs))
	for _, id := range record.Justification.MatchingSkillIDs {
		skill, err := s.catalog.Resolve(ctx, id)
		if err != nil {
			continue
		}
		skills = append(skills, skill)
	}

	return &ports.JustificationView{
		Assignment:     record,
		Technician:     technician,
		MatchingSkills: skills,
	}, nil
}

// commitAssignment writes the ticket and its assignment record atomically.
// The ticket write only lands if the stored row still matches from.
func (s *TicketService) commitAssignment(ctx context.Context, ticket *domain.Ticket, from domain.RoutingState, record *domain.AssignmentRecord) (*domain.Ticket, *domain.AssignmentRecord, error) {
	var saved *domain.Ticket
	var savedRecord *domain.AssignmentRecord

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.tickets.UpdateRouting(ctx, ticket, from)
		if err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		savedRecord, err = s.assignments.Append(ctx, record)
		if err != nil {
			return fmt.Errorf("append assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return saved, savedRecord, nil
}

// compensate undoes an in-memory reservation whose decision was not
// persisted, and optionally restores the technician that held the ticket
// before.
func (s *TicketService) compensate(reserved, ticketID int64, prior *int64) {
	if reserved != 0 {
		if err := s.tracker.Release(reserved, ticketID); err != nil {
			s.logger.Error("compensating release failed",
				"ticket_id", ticketID,
				"technician_id", reserved,
				"error", err,
			)
		}
	}
	if prior != nil {
		if err := s.tracker.Reserve(*prior, ticketID); err != nil {
			s.logger.Warn("could not restore prior reservation",
				"ticket_id", ticketID,
				"technician_id", *prior,
				"error", err,
			)
		}
	}
}

func (s *TicketService) persistUnassigned(ctx context.Context, ticket *domain.Ticket, from domain.RoutingState, prior int64) {
	updated, err := s.tickets.UpdateRouting(ctx, ticket, from)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist unassigned ticket",
			"ticket_id", ticket.ID,
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "ticket returned to queue",
		"ticket_id", updated.ID,
		"previous_technician_id", prior,
	)
	s.broadcast(domain.EventTicketUnassigned, updated.ID, domain.NewTicketSnapshot(updated))
}

// claim marks ticketID as being routed. It reports false when another
// request already holds the claim.
func (s *TicketService) claim(ticketID int64) bool {
	s.routingMu.Lock()
	defer s.routingMu.Unlock()
	if _, busy := s.routing[ticketID]; busy {
		return false
	}
	s.routing[ticketID] = struct{}{}
	return true
}

func (s *TicketService) unclaim(ticketID int64) {
	s.routingMu.Lock()
	delete(s.routing, ticketID)
	s.routingMu.Unlock()
}

func (s *TicketService) logRoutingFailure(ctx context.Context, ticketID int64, err error) {
	if errors.Is(err, apperrors.ErrNoEligibleTechnician) {
		s.logger.InfoContext(ctx, "ticket left unassigned", "ticket_id", ticketID)
		return
	}
	s.logger.WarnContext(ctx, "routing failed",
		"ticket_id", ticketID,
		"error", err,
	)
}

func (s *TicketService) announceAssignment(ticket *domain.Ticket, record *domain.AssignmentRecord) {
	s.broadcast(domain.EventTicketAssigned, ticket.ID, domain.NewAssignmentEventPayload(ticket, record))
	s.notifyAssignment(ticket, record)
}

// notifyAssignment tells the technician about new work
func (s *TicketService) notifyAssignment(ticket *domain.Ticket, record *domain.AssignmentRecord) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		ctx := context.Background()

		s.notifier.Notify(ctx, ports.NotificationParams{
			TechnicianID: record.TechnicianID,
			Subject:      fmt.Sprintf("Ticket #%d assigned to you", ticket.ID),
			Message:      fmt.Sprintf("You have been assigned '%s' (%s priority).", ticket.Title, ticket.Priority),
			TicketID:     ticket.ID,
		})
	}()
}

func (s *TicketService) broadcast(eventType domain.EventType, ticketID int64, payload any) {
	event := domain.Event{
		Type:     eventType,
		Payload:  payload,
		TicketID: ticketID,
	}
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Warn("failed to broadcast event",
			"type", eventType,
			"ticket_id", ticketID,
			"error", err,
		)
	}
}

// Shutdown waits for in-flight notifications.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}
