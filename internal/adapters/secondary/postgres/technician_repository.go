package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
	"github.com/lorrc/service-desk-routing/internal/core/utils"
)

const foreignKeyViolation = "23503"

const technicianColumns = `id, name, skill_level, specialization, availability_status, auto_throttled,
       capacity, satisfaction_rating, is_active, created_at, updated_at`

// openTicketsQuery lists the tickets that occupy each technician's capacity.
const openTicketsQuery = `
SELECT assigned_technician_id, id
FROM tickets
WHERE assigned_technician_id = ANY($1)
  AND status NOT IN ('resolved', 'closed', 'cancelled')
ORDER BY assigned_technician_id, id
`

// TechnicianRepository persists technician profiles and their skills.
type TechnicianRepository struct {
	pool *pgxpool.Pool
	tx   *TransactionManager
}

var _ ports.TechnicianRepository = (*TechnicianRepository)(nil)

// NewTechnicianRepository creates a new technician repository.
func NewTechnicianRepository(pool *pgxpool.Pool) *TechnicianRepository {
	return &TechnicianRepository{pool: pool, tx: NewTransactionManager(pool)}
}

// Create inserts a technician and its skill proficiencies atomically.
func (r *TechnicianRepository) Create(ctx context.Context, t *domain.Technician) (*domain.Technician, error) {
	const query = `
INSERT INTO technicians (name, skill_level, specialization, availability_status, auto_throttled,
                         capacity, satisfaction_rating, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + technicianColumns

	var created *domain.Technician
	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := GetDBTX(ctx, r.pool)
		row := db.QueryRow(ctx, query,
			t.Name,
			string(t.SkillLevel),
			t.Specialization,
			string(t.AvailabilityStatus),
			t.AutoThrottled,
			t.Capacity,
			t.SatisfactionRating,
			t.IsActive,
			t.CreatedAt,
		)
		var err error
		created, err = scanTechnician(row)
		if err != nil {
			return fmt.Errorf("insert technician: %w", err)
		}
		if err := r.replaceSkills(ctx, db, created.ID, t.Skills); err != nil {
			return err
		}
		created.Skills = append(created.Skills[:0:0], t.Skills...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	created.ActiveTicketIDs = []int64{}
	return created, nil
}

// Update rewrites the profile and replaces the skill set. Active tickets are
// derived from the tickets table and never written here.
func (r *TechnicianRepository) Update(ctx context.Context, t *domain.Technician) (*domain.Technician, error) {
	const query = `
UPDATE technicians
SET name = $2,
    skill_level = $3,
    specialization = $4,
    availability_status = $5,
    auto_throttled = $6,
    capacity = $7,
    satisfaction_rating = $8,
    is_active = $9,
    updated_at = COALESCE($10, NOW())
WHERE id = $1
RETURNING ` + technicianColumns

	var updated *domain.Technician
	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := GetDBTX(ctx, r.pool)
		row := db.QueryRow(ctx, query,
			t.ID,
			t.Name,
			string(t.SkillLevel),
			t.Specialization,
			string(t.AvailabilityStatus),
			t.AutoThrottled,
			t.Capacity,
			t.SatisfactionRating,
			t.IsActive,
			utils.ToNullTimestamptz(t.UpdatedAt),
		)
		var err error
		updated, err = scanTechnician(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrTechnicianNotFound
			}
			return fmt.Errorf("update technician: %w", err)
		}
		if err := r.replaceSkills(ctx, db, t.ID, t.Skills); err != nil {
			return err
		}
		updated.Skills = append(updated.Skills[:0:0], t.Skills...)

		active, err := r.openTickets(ctx, db, []int64{t.ID})
		if err != nil {
			return err
		}
		updated.ActiveTicketIDs = active[t.ID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.ActiveTicketIDs == nil {
		updated.ActiveTicketIDs = []int64{}
	}
	return updated, nil
}

// GetByID retrieves a technician with its skills and open tickets.
func (r *TechnicianRepository) GetByID(ctx context.Context, id int64) (*domain.Technician, error) {
	const query = `SELECT ` + technicianColumns + ` FROM technicians WHERE id = $1`

	var out *domain.Technician
	err := r.tx.WithReadOnlyTransaction(ctx, func(ctx context.Context) error {
		db := GetDBTX(ctx, r.pool)
		var err error
		out, err = scanTechnician(db.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrTechnicianNotFound
			}
			return err
		}
		return r.hydrate(ctx, db, []*domain.Technician{out})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every technician ordered by id.
func (r *TechnicianRepository) List(ctx context.Context) ([]*domain.Technician, error) {
	const query = `SELECT ` + technicianColumns + ` FROM technicians ORDER BY id`

	var technicians []*domain.Technician
	err := r.tx.WithReadOnlyTransaction(ctx, func(ctx context.Context) error {
		db := GetDBTX(ctx, r.pool)
		rows, err := db.Query(ctx, query)
		if err != nil {
			return err
		}
		technicians, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Technician, error) {
			return scanTechnician(row)
		})
		if err != nil {
			return err
		}
		return r.hydrate(ctx, db, technicians)
	})
	if err != nil {
		return nil, err
	}
	return technicians, nil
}

// hydrate fills skills and open tickets for the given technicians.
func (r *TechnicianRepository) hydrate(ctx context.Context, db DBTX, technicians []*domain.Technician) error {
	if len(technicians) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(technicians))
	byID := make(map[int64]*domain.Technician, len(technicians))
	for _, t := range technicians {
		ids = append(ids, t.ID)
		byID[t.ID] = t
		t.Skills = []domain.TechnicianSkill{}
		t.ActiveTicketIDs = []int64{}
	}

	const skillsQuery = `
SELECT technician_id, skill_id, proficiency
FROM technician_skills
WHERE technician_id = ANY($1)
ORDER BY technician_id, skill_id
`
	rows, err := db.Query(ctx, skillsQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			technicianID int64
			skill        domain.TechnicianSkill
			proficiency  int16
		)
		if err := rows.Scan(&technicianID, &skill.SkillID, &proficiency); err != nil {
			return err
		}
		skill.Proficiency = int(proficiency)
		byID[technicianID].Skills = append(byID[technicianID].Skills, skill)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	active, err := r.openTickets(ctx, db, ids)
	if err != nil {
		return err
	}
	for id, tickets := range active {
		if t, ok := byID[id]; ok {
			t.ActiveTicketIDs = tickets
		}
	}
	return nil
}

func (r *TechnicianRepository) openTickets(ctx context.Context, db DBTX, ids []int64) (map[int64][]int64, error) {
	rows, err := db.Query(ctx, openTicketsQuery, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var technicianID, ticketID int64
		if err := rows.Scan(&technicianID, &ticketID); err != nil {
			return nil, err
		}
		out[technicianID] = append(out[technicianID], ticketID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TechnicianRepository) replaceSkills(ctx context.Context, db DBTX, technicianID int64, skills []domain.TechnicianSkill) error {
	if _, err := db.Exec(ctx, `DELETE FROM technician_skills WHERE technician_id = $1`, technicianID); err != nil {
		return fmt.Errorf("clear technician skills: %w", err)
	}
	if len(skills) == 0 {
		return nil
	}

	skillIDs := make([]int64, 0, len(skills))
	proficiencies := make([]int32, 0, len(skills))
	for _, s := range skills {
		skillIDs = append(skillIDs, s.SkillID)
		proficiencies = append(proficiencies, int32(s.Proficiency))
	}

	const query = `
INSERT INTO technician_skills (technician_id, skill_id, proficiency)
SELECT $1, skill_id, proficiency
FROM UNNEST($2::bigint[], $3::int[]) AS s(skill_id, proficiency)
`
	if _, err := db.Exec(ctx, query, technicianID, skillIDs, proficiencies); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return apperrors.ErrSkillNotFound
		}
		return fmt.Errorf("insert technician skills: %w", err)
	}
	return nil
}

func scanTechnician(row pgx.Row) (*domain.Technician, error) {
	var (
		t            domain.Technician
		skillLevel   string
		availability string
		updatedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&t.ID,
		&t.Name,
		&skillLevel,
		&t.Specialization,
		&availability,
		&t.AutoThrottled,
		&t.Capacity,
		&t.SatisfactionRating,
		&t.IsActive,
		&t.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.SkillLevel = domain.SkillLevel(skillLevel)
	t.AvailabilityStatus = domain.AvailabilityStatus(availability)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = utils.FromNullTimestamptz(updatedAt)
	return &t, nil
}
