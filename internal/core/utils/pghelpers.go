package utils

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToNullInt8 converts an optional id to a pgtype.Int8.
// A nil pointer is considered invalid (NULL).
func ToNullInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

// FromNullInt8 converts a pgtype.Int8 to an optional id.
func FromNullInt8(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

// ToNullFloat8 converts an optional rating to a pgtype.Float8.
func ToNullFloat8(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

// FromNullFloat8 converts a pgtype.Float8 to an optional rating.
func FromNullFloat8(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	out := v.Float64
	return &out
}

// ToNullTimestamptz converts an optional time to a pgtype.Timestamptz.
func ToNullTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// FromNullTimestamptz converts a pgtype.Timestamptz to an optional time.
// A NULL value is converted to nil.
func FromNullTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	out := t.Time.UTC()
	return &out
}
