package sticker

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"santua/pkg/models"
)

// Store holds sticker records by id. Get returns nil, nil for unknown ids;
// Put inserts or replaces.
type Store interface {
	Get(ctx context.Context, id string) (*models.Sticker, error)
	Put(ctx context.Context, s models.Sticker) error
	List(ctx context.Context) ([]models.Sticker, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]models.Sticker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]models.Sticker)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Sticker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s models.Sticker) error {
	m.mu.Lock()
	m.items[s.ID] = s
	m.mu.Unlock()
	return nil
}

// List returns records oldest first.
func (m *MemoryStore) List(_ context.Context) ([]models.Sticker, error) {
	m.mu.RLock()
	out := make([]models.Sticker, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (r *SQLStore) Get(ctx context.Context, id string) (*models.Sticker, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, kind, activated, owner_alias, contact_phone, custom_message,
		       batch_id, created_at, payment_confirmed, activated_at
		FROM stickers
		WHERE id = ?
	`, id)

	s, err := scanSticker(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get sticker: %w", err)
	}
	return s, nil
}

func (r *SQLStore) Put(ctx context.Context, s models.Sticker) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO stickers (id, kind, activated, owner_alias, contact_phone, custom_message,
		                      batch_id, created_at, payment_confirmed, activated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			activated = excluded.activated,
			owner_alias = excluded.owner_alias,
			contact_phone = excluded.contact_phone,
			custom_message = excluded.custom_message,
			payment_confirmed = excluded.payment_confirmed,
			activated_at = excluded.activated_at
	`, s.ID, s.Kind, s.Activated, s.OwnerAlias, s.ContactPhone, s.CustomMessage,
		s.BatchID, s.CreatedAt.UTC(), s.PaymentConfirmed, s.ActivatedAt)
	if err != nil {
		return fmt.Errorf("put sticker: %w", err)
	}
	return nil
}

func (r *SQLStore) List(ctx context.Context) ([]models.Sticker, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, kind, activated, owner_alias, contact_phone, custom_message,
		       batch_id, created_at, payment_confirmed, activated_at
		FROM stickers
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list stickers: %w", err)
	}
	defer rows.Close()

	out := make([]models.Sticker, 0)
	for rows.Next() {
		s, err := scanSticker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sticker: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSticker(sc scanner) (*models.Sticker, error) {
	var (
		s           models.Sticker
		kind        sql.NullString
		alias       sql.NullString
		phone       sql.NullString
		message     sql.NullString
		batchID     sql.NullString
		activatedAt sql.NullTime
	)
	if err := sc.Scan(&s.ID, &kind, &s.Activated, &alias, &phone, &message,
		&batchID, &s.CreatedAt, &s.PaymentConfirmed, &activatedAt); err != nil {
		return nil, err
	}
	s.Kind = kind.String
	s.OwnerAlias = alias.String
	s.ContactPhone = phone.String
	s.CustomMessage = message.String
	s.BatchID = batchID.String
	if activatedAt.Valid {
		t := activatedAt.Time
		s.ActivatedAt = &t
	}
	return &s, nil
}
