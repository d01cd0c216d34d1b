package matching

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"santua/pkg/models"
)

// SQLStore keeps the collections in the found_entries and lost_entries
// tables. Row id order is insertion order.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func table(kind Kind) string {
	if kind == KindFound {
		return "found_entries"
	}
	return "lost_entries"
}

func (r *SQLStore) Find(ctx context.Context, kind Kind, key, category string) (*models.Entry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT nro, categoria, contacto, payload, created_at, internal_id
		FROM `+table(kind)+`
		WHERE nro = ? AND categoria = ?
		ORDER BY id ASC
		LIMIT 1
	`, key, category)

	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}
	return e, nil
}

func (r *SQLStore) Insert(ctx context.Context, kind Kind, e models.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var internalID sql.NullInt64
	if e.InternalID != 0 {
		internalID = sql.NullInt64{Int64: e.InternalID, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO `+table(kind)+` (nro, categoria, contacto, payload, created_at, internal_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Key, e.Category, e.Contact, string(payload), e.CreatedAt.UTC(), internalID)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (r *SQLStore) DeleteFirst(ctx context.Context, kind Kind, key string) (bool, error) {
	t := table(kind)
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM `+t+`
		WHERE id = (SELECT id FROM `+t+` WHERE nro = ? ORDER BY id ASC LIMIT 1)
	`, key)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SQLStore) DeleteAll(ctx context.Context, kind Kind, key string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM `+table(kind)+` WHERE nro = ?`, key)
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete entries rows: %w", err)
	}
	return int(n), nil
}

func (r *SQLStore) List(ctx context.Context, kind Kind) ([]models.Entry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT nro, categoria, contacto, payload, created_at, internal_id
		FROM `+table(kind)+`
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *SQLStore) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*models.Entry, error) {
	var (
		e          models.Entry
		contact    sql.NullString
		payload    sql.NullString
		createdAt  time.Time
		internalID sql.NullInt64
	)
	if err := sc.Scan(&e.Key, &e.Category, &contact, &payload, &createdAt, &internalID); err != nil {
		return nil, err
	}
	e.Contact = contact.String
	e.CreatedAt = createdAt
	if internalID.Valid {
		e.InternalID = internalID.Int64
	}
	if payload.Valid && payload.String != "" && payload.String != "null" {
		if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", e.Key, err)
		}
	}
	return &e, nil
}
