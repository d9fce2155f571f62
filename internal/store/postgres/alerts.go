package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/alert"
)

const selectAlertColumns = `id, company_id, type, severity, entity_id, period, message, read, created_at`

func scanAlert(s scanner) (*alert.Alert, error) {
	var a alert.Alert

	var typ, severity string

	if err := s.Scan(&a.ID, &a.CompanyID, &typ, &severity, &a.EntityID, &a.Period, &a.Message, &a.Read, &a.CreatedAt); err != nil {
		return nil, err
	}

	a.Type = alert.Type(typ)
	a.Severity = alert.Severity(severity)

	return &a, nil
}

func (s *Store) GetAlert(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	a, err := scanAlert(s.db.QueryRowContext(ctx, `SELECT `+selectAlertColumns+` FROM alerts WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, alert.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting alert: %w", err)
	}

	return a, nil
}

func (s *Store) ListAlerts(ctx context.Context, filter alert.ListFilter) ([]*alert.Alert, error) {
	w := &where{}
	w.add("company_id = $%d", filter.CompanyID)

	if filter.UnreadOnly {
		w.addRaw("NOT read")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+selectAlertColumns+` FROM alerts`+w.String()+` ORDER BY created_at ASC, type ASC, entity_id ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var out []*alert.Alert

	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

// CreateAlerts inserts the alerts whose (type, entity, period) key is new. The unique
// constraint decides, so concurrent evaluators cannot raise the same alert twice.
func (s *Store) CreateAlerts(ctx context.Context, alerts ...*alert.Alert) ([]*alert.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning alert insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO alerts (id, company_id, type, severity, entity_id, period, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (type, entity_id, period) DO NOTHING
		RETURNING id
	`

	var created []*alert.Alert

	for _, a := range alerts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}

		var id uuid.UUID

		err := tx.QueryRowContext(ctx, query,
			a.ID, a.CompanyID, string(a.Type), string(a.Severity), a.EntityID, a.Period, a.Message, a.Read, a.CreatedAt,
		).Scan(&id)
		if isNoRows(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("inserting alert: %w", err)
		}

		created = append(created, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing alerts: %w", err)
	}

	return created, nil
}

func (s *Store) MarkAlertRead(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking alert read: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return alert.ErrNotFound
	}

	return nil
}
