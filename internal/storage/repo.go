package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"coroconcept/internal/slot"
)

// LoadSlot returns the stored value, or "" when the slot has never been written.
func (s *Store) LoadSlot(ctx context.Context, name string) (string, error) {
	q := s.sql.Select("value").From("slots").Where(sq.Eq{"name": name})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build load slot query: %w", err)
	}
	var value string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load slot %s: %w", name, err)
	}
	return value, nil
}

func (s *Store) StoreSlot(ctx context.Context, name, value string) error {
	q := s.sql.Insert("slots").
		Columns("name", "value", "updated_at").
		Values(name, value, nowExpr(s.driver)).
		Suffix("ON CONFLICT(name) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build store slot query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("store slot %s: %w", name, err)
	}
	return nil
}

func (s *Store) Slot(name string) slot.Slot {
	return &sqlSlot{store: s, name: name}
}

type sqlSlot struct {
	store *Store
	name  string
}

func (s *sqlSlot) Load(ctx context.Context) (string, error) {
	return s.store.LoadSlot(ctx, s.name)
}

func (s *sqlSlot) Store(ctx context.Context, value string) error {
	return s.store.StoreSlot(ctx, s.name, value)
}

func nowExpr(driver string) any {
	if driver == DriverPostgres {
		return sq.Expr("NOW()")
	}
	return sq.Expr("CURRENT_TIMESTAMP")
}
