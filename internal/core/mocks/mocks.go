package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockSkillRepository is a mock implementation of ports.SkillRepository
type MockSkillRepository struct {
	mock.Mock
}

func NewMockSkillRepository() *MockSkillRepository {
	return &MockSkillRepository{}
}

func (m *MockSkillRepository) Create(ctx context.Context, skill *domain.Skill) (*domain.Skill, error) {
	args := m.Called(ctx, skill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Skill), args.Error(1)
}

func (m *MockSkillRepository) Rename(ctx context.Context, id int64, name string) (*domain.Skill, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Skill), args.Error(1)
}

func (m *MockSkillRepository) GetByID(ctx context.Context, id int64) (*domain.Skill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Skill), args.Error(1)
}

func (m *MockSkillRepository) List(ctx context.Context) ([]domain.Skill, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Skill), args.Error(1)
}

// MockTechnicianRepository is a mock implementation of ports.TechnicianRepository
type MockTechnicianRepository struct {
	mock.Mock
}

func NewMockTechnicianRepository() *MockTechnicianRepository {
	return &MockTechnicianRepository{}
}

func (m *MockTechnicianRepository) Create(ctx context.Context, technician *domain.Technician) (*domain.Technician, error) {
	args := m.Called(ctx, technician)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) Update(ctx context.Context, technician *domain.Technician) (*domain.Technician, error) {
	args := m.Called(ctx, technician)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) GetByID(ctx context.Context, id int64) (*domain.Technician, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianRepository) List(ctx context.Context) ([]*domain.Technician, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Technician), args.Error(1)
}

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) UpdateRouting(ctx context.Context, ticket *domain.Ticket, from domain.RoutingState) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListUnassigned(ctx context.Context, limit int) ([]*domain.Ticket, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

// MockAssignmentRepository is a mock implementation of ports.AssignmentRepository
type MockAssignmentRepository struct {
	mock.Mock
}

func NewMockAssignmentRepository() *MockAssignmentRepository {
	return &MockAssignmentRepository{}
}

func (m *MockAssignmentRepository) Append(ctx context.Context, record *domain.AssignmentRecord) (*domain.AssignmentRecord, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRecord), args.Error(1)
}

func (m *MockAssignmentRepository) ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.AssignmentRecord, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AssignmentRecord), args.Error(1)
}

func (m *MockAssignmentRepository) Latest(ctx context.Context, ticketID int64) (*domain.AssignmentRecord, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRecord), args.Error(1)
}

// MockOutcomeRepository is a mock implementation of ports.OutcomeRepository
type MockOutcomeRepository struct {
	mock.Mock
}

func NewMockOutcomeRepository() *MockOutcomeRepository {
	return &MockOutcomeRepository{}
}

func (m *MockOutcomeRepository) Upsert(ctx context.Context, outcome domain.TicketOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *MockOutcomeRepository) ListByTechnician(ctx context.Context, technicianID int64, limit int) ([]domain.TicketOutcome, error) {
	args := m.Called(ctx, technicianID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketOutcome), args.Error(1)
}

// MockScoreSnapshotRepository is a mock implementation of ports.ScoreSnapshotRepository
type MockScoreSnapshotRepository struct {
	mock.Mock
}

func NewMockScoreSnapshotRepository() *MockScoreSnapshotRepository {
	return &MockScoreSnapshotRepository{}
}

func (m *MockScoreSnapshotRepository) Save(ctx context.Context, snapshot *domain.ScoreSnapshot) (*domain.ScoreSnapshot, error) {
	args := m.Called(ctx, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScoreSnapshot), args.Error(1)
}

func (m *MockScoreSnapshotRepository) Latest(ctx context.Context, technicianID int64) (*domain.ScoreSnapshot, error) {
	args := m.Called(ctx, technicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScoreSnapshot), args.Error(1)
}

// MockSkillCatalog is a mock implementation of ports.SkillCatalog
type MockSkillCatalog struct {
	mock.Mock
}

func NewMockSkillCatalog() *MockSkillCatalog {
	return &MockSkillCatalog{}
}

func (m *MockSkillCatalog) Resolve(ctx context.Context, id int64) (domain.Skill, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Skill), args.Error(1)
}

func (m *MockSkillCatalog) All(ctx context.Context) []domain.Skill {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Skill)
}

func (m *MockSkillCatalog) ValidateIDs(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockSkillCatalog) Add(ctx context.Context, name string) (domain.Skill, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.Skill), args.Error(1)
}

func (m *MockSkillCatalog) Rename(ctx context.Context, id int64, name string) (domain.Skill, error) {
	args := m.Called(ctx, id, name)
	return args.Get(0).(domain.Skill), args.Error(1)
}

// MockScorer is a mock implementation of ports.Scorer
type MockScorer struct {
	mock.Mock
}

func NewMockScorer() *MockScorer {
	return &MockScorer{}
}

func (m *MockScorer) Compute(components domain.ScoreComponents) float64 {
	args := m.Called(components)
	return args.Get(0).(float64)
}

func (m *MockScorer) Evaluate(ctx context.Context, technicianID int64) (domain.ScoreSnapshot, error) {
	args := m.Called(ctx, technicianID)
	if fn, ok := args.Get(0).(func(context.Context, int64) domain.ScoreSnapshot); ok {
		return fn(ctx, technicianID), args.Error(1)
	}
	return args.Get(0).(domain.ScoreSnapshot), args.Error(1)
}

func (m *MockScorer) Snapshot(ctx context.Context, technicianID int64) (domain.ScoreSnapshot, error) {
	args := m.Called(ctx, technicianID)
	if fn, ok := args.Get(0).(func(context.Context, int64) domain.ScoreSnapshot); ok {
		return fn(ctx, technicianID), args.Error(1)
	}
	return args.Get(0).(domain.ScoreSnapshot), args.Error(1)
}

func (m *MockScorer) SnapshotAll(ctx context.Context, technicianIDs []int64) ([]domain.ScoreSnapshot, error) {
	args := m.Called(ctx, technicianIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoreSnapshot), args.Error(1)
}

func (m *MockScorer) Invalidate(technicianID int64) {
	m.Called(technicianID)
}

// MockMatcher is a mock implementation of ports.Matcher
type MockMatcher struct {
	mock.Mock
}

func NewMockMatcher() *MockMatcher {
	return &MockMatcher{}
}

func (m *MockMatcher) Rank(ctx context.Context, ticket *domain.Ticket, exclude ...int64) ([]domain.RankedCandidate, error) {
	args := m.Called(ctx, ticket, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RankedCandidate), args.Error(1)
}

func (m *MockMatcher) AssignTicket(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRecord), args.Error(1)
}

func (m *MockMatcher) Reassign(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRecord), args.Error(1)
}

// MockDispatcher is a mock implementation of ports.AssignmentDispatcher
type MockDispatcher struct {
	mock.Mock
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Submit(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentRecord), args.Error(1)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*ports.TicketResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TicketResult), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) AssignTicket(ctx context.Context, ticketID int64) (*ports.TicketResult, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TicketResult), args.Error(1)
}

func (m *MockTicketService) ReassignTicket(ctx context.Context, ticketID int64) (*ports.TicketResult, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TicketResult), args.Error(1)
}

func (m *MockTicketService) ListAssignments(ctx context.Context, ticketID int64) ([]*domain.AssignmentRecord, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AssignmentRecord), args.Error(1)
}

func (m *MockTicketService) GetJustification(ctx context.Context, ticketID int64) (*ports.JustificationView, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.JustificationView), args.Error(1)
}

func (m *MockTicketService) RetryUnassigned(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketService) Shutdown() {
	m.Called()
}

// MockTechnicianService is a mock implementation of ports.TechnicianService
type MockTechnicianService struct {
	mock.Mock
}

func NewMockTechnicianService() *MockTechnicianService {
	return &MockTechnicianService{}
}

func (m *MockTechnicianService) RegisterTechnician(ctx context.Context, params domain.TechnicianParams) (*domain.Technician, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianService) UpdateProfile(ctx context.Context, id int64, params domain.TechnicianParams) (*domain.Technician, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianService) SetAvailability(ctx context.Context, id int64, status domain.AvailabilityStatus) (*domain.Technician, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianService) GetTechnician(ctx context.Context, id int64) (*domain.Technician, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Technician), args.Error(1)
}

func (m *MockTechnicianService) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Technician), args.Error(1)
}

func (m *MockTechnicianService) GetScore(ctx context.Context, id int64) (*domain.ScoreSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScoreSnapshot), args.Error(1)
}

func (m *MockTechnicianService) ListScores(ctx context.Context) ([]domain.ScoreSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoreSnapshot), args.Error(1)
}

func (m *MockTechnicianService) RecordOutcome(ctx context.Context, outcome domain.TicketOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

// MockTransactionManager runs fn directly unless an error is configured.
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// FakeEngineObserver counts observations. It is safe for concurrent use.
type FakeEngineObserver struct {
	mu         sync.Mutex
	Successes  int
	Failures   map[string]int
	Conflicts  int
	ScoreCalls int
	CacheHits  int
	MaxDepth   int
}

func NewFakeEngineObserver() *FakeEngineObserver {
	return &FakeEngineObserver{Failures: make(map[string]int)}
}

func (f *FakeEngineObserver) AssignmentSucceeded(float64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Successes++
}

func (f *FakeEngineObserver) AssignmentFailed(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Failures[reason]++
}

func (f *FakeEngineObserver) ReservationConflict() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Conflicts++
}

func (f *FakeEngineObserver) ScoreComputed(_ time.Duration, cached bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ScoreCalls++
	if cached {
		f.CacheHits++
	}
}

func (f *FakeEngineObserver) QueueDepth(depth int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MaxDepth = max(f.MaxDepth, depth)
}

// ConflictCount returns the number of rejected reservations.
func (f *FakeEngineObserver) ConflictCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Conflicts
}

// FailureCount returns the number of failed assignments with reason.
func (f *FakeEngineObserver) FailureCount(reason string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Failures[reason]
}

// CacheHitCount returns the number of snapshots served from cache.
func (f *FakeEngineObserver) CacheHitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CacheHits
}

// MaxQueueDepth returns the deepest dispatch queue observed.
func (f *FakeEngineObserver) MaxQueueDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MaxDepth
}

var (
	_ ports.SkillRepository         = (*MockSkillRepository)(nil)
	_ ports.TechnicianRepository    = (*MockTechnicianRepository)(nil)
	_ ports.TicketRepository        = (*MockTicketRepository)(nil)
	_ ports.AssignmentRepository    = (*MockAssignmentRepository)(nil)
	_ ports.OutcomeRepository       = (*MockOutcomeRepository)(nil)
	_ ports.ScoreSnapshotRepository = (*MockScoreSnapshotRepository)(nil)
	_ ports.SkillCatalog            = (*MockSkillCatalog)(nil)
	_ ports.Scorer                  = (*MockScorer)(nil)
	_ ports.Matcher                 = (*MockMatcher)(nil)
	_ ports.AssignmentDispatcher    = (*MockDispatcher)(nil)
	_ ports.TicketService           = (*MockTicketService)(nil)
	_ ports.TechnicianService       = (*MockTechnicianService)(nil)
	_ ports.TransactionManager      = (*MockTransactionManager)(nil)
	_ ports.Notifier                = (*MockNotifier)(nil)
	_ ports.EventBroadcaster        = (*MockEventBroadcaster)(nil)
	_ ports.EngineObserver          = (*FakeEngineObserver)(nil)
)
