package sqlutil

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversions between domain pointer fields and their nullable column
// representations.

// NullTime wraps an optional timestamp for a nullable column.
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// TimePtr unwraps a nullable timestamp column.
func TimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	ts := t.Time
	return &ts
}

// NullUUID wraps an optional UUID for a nullable column.
func NullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// UUIDPtr unwraps a nullable UUID column.
func UUIDPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := id.UUID
	return &u
}

// NullableID maps the uuid.Nil sentinel to NULL so the zero value never
// masquerades as a real reference.
func NullableID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
