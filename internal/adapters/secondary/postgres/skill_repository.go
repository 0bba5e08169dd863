package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

const uniqueViolation = "23505"

// SkillRepository persists the skill catalog.
type SkillRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SkillRepository = (*SkillRepository)(nil)

// NewSkillRepository creates a new skill repository.
func NewSkillRepository(pool *pgxpool.Pool) *SkillRepository {
	return &SkillRepository{pool: pool}
}

// Create persists a new skill.
func (r *SkillRepository) Create(ctx context.Context, skill *domain.Skill) (*domain.Skill, error) {
	const query = `INSERT INTO skills (name) VALUES ($1) RETURNING id, name`

	var out domain.Skill
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, skill.Name).Scan(&out.ID, &out.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrSkillExists
		}
		return nil, fmt.Errorf("insert skill: %w", err)
	}
	return &out, nil
}

// Rename changes a skill's name.
func (r *SkillRepository) Rename(ctx context.Context, id int64, name string) (*domain.Skill, error) {
	const query = `UPDATE skills SET name = $2 WHERE id = $1 RETURNING id, name`

	var out domain.Skill
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, id, name).Scan(&out.ID, &out.Name)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.ErrSkillNotFound
		case isUniqueViolation(err):
			return nil, apperrors.ErrSkillExists
		}
		return nil, fmt.Errorf("rename skill: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a skill by its ID.
func (r *SkillRepository) GetByID(ctx context.Context, id int64) (*domain.Skill, error) {
	const query = `SELECT id, name FROM skills WHERE id = $1`

	var out domain.Skill
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, id).Scan(&out.ID, &out.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSkillNotFound
		}
		return nil, err
	}
	return &out, nil
}

// List returns every skill ordered by id.
func (r *SkillRepository) List(ctx context.Context) ([]domain.Skill, error) {
	const query = `SELECT id, name FROM skills ORDER BY id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skills := make([]domain.Skill, 0)
	for rows.Next() {
		var s domain.Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return skills, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
