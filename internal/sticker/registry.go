// Package sticker manages paid QR identity tags. A sticker is created
// unactivated in a batch, becomes activated once its payment is confirmed,
// and only then accepts owner contact details.
package sticker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"santua/pkg/metrics"
	"santua/pkg/models"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("sticker not found or not activated")
	ErrForbidden  = errors.New("sticker not activated")
)

const (
	MaxBatchSize = 500
	DefaultKind  = "standard"
	idPrefix     = "SN"
	idAttempts   = 5
)

type Batch struct {
	ID   string   `json:"batch_id"`
	Kind string   `json:"kind"`
	IDs  []string `json:"ids"`
}

type Details struct {
	ID      string
	Alias   string
	Phone   string
	Message string
	Kind    string
}

// Contact is what a finder sees after scanning an activated sticker.
type Contact struct {
	ID      string `json:"id"`
	Alias   string `json:"alias,omitempty"`
	Phone   string `json:"telefono,omitempty"`
	Message string `json:"mensaje,omitempty"`
	Kind    string `json:"tipo,omitempty"`
}

type Validation struct {
	Status   string `json:"status"` // "activated" or "new"
	Redirect string `json:"redirect"`
}

type Stats struct {
	Generated int `json:"generados"`
	Activated int `json:"activados"`
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDSource replaces the random id generator.
func WithIDSource(fn func() (string, error)) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithActivationListener registers fn to run after a sticker is activated.
func WithActivationListener(fn func(models.Sticker)) Option {
	return func(r *Registry) { r.listeners = append(r.listeners, fn) }
}

type Registry struct {
	mu        sync.Mutex
	store     Store
	log       *zap.Logger
	now       func() time.Time
	newID     func() (string, error)
	listeners []func(models.Sticker)
}

func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: RandomID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RandomID returns "SN" followed by 64 random bits in base 36.
func RandomID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	n := binary.BigEndian.Uint64(b[:])
	return idPrefix + strings.ToUpper(strconv.FormatUint(n, 36)), nil
}

// NormalizeID trims and uppercases a sticker id as typed or scanned.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func (r *Registry) GenerateBatch(ctx context.Context, count int, kind string) (Batch, error) {
	if count < 1 || count > MaxBatchSize {
		return Batch{}, fmt.Errorf("%w: count must be 1-%d", ErrValidation, MaxBatchSize)
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = DefaultKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batch := Batch{ID: uuid.NewString(), Kind: kind, IDs: make([]string, 0, count)}
	created := r.now().UTC()
	for i := 0; i < count; i++ {
		id, err := r.uniqueID(ctx)
		if err != nil {
			return Batch{}, err
		}
		s := models.Sticker{
			ID:        id,
			Kind:      kind,
			BatchID:   batch.ID,
			CreatedAt: created,
		}
		if err := r.store.Put(ctx, s); err != nil {
			return Batch{}, fmt.Errorf("store sticker: %w", err)
		}
		batch.IDs = append(batch.IDs, id)
	}

	metrics.StickersGeneratedTotal.Add(float64(count))
	r.log.Info("sticker batch generated",
		zap.String("batch_id", batch.ID),
		zap.String("kind", kind),
		zap.Int("count", count),
	)
	return batch, nil
}

// uniqueID draws ids until one is unused. Caller holds mu.
func (r *Registry) uniqueID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < idAttempts; attempt++ {
		id, err := r.newID()
		if err != nil {
			return "", err
		}
		existing, err := r.store.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check sticker id: %w", err)
		}
		if existing == nil {
			return id, nil
		}
	}
	return "", fmt.Errorf("no unused sticker id after %d attempts", idAttempts)
}

// ConfirmPayment activates id after its payment was verified elsewhere.
// An unknown id gets a fresh activated record: stickers sold before a
// restart are otherwise lost along with the memory store. This is a
// reconciliation workaround, not a way to mint stickers.
func (r *Registry) ConfirmPayment(ctx context.Context, id string) (models.Sticker, error) {
	id = NormalizeID(id)
	if id == "" {
		return models.Sticker{}, fmt.Errorf("%w: id required", ErrValidation)
	}

	r.mu.Lock()
	existing, err := r.store.Get(ctx, id)
	if err != nil {
		r.mu.Unlock()
		return models.Sticker{}, fmt.Errorf("get sticker: %w", err)
	}

	now := r.now().UTC()
	source := "payment"
	var s models.Sticker
	if existing == nil {
		source = "reconciled"
		s = models.Sticker{ID: id, CreatedAt: now}
		r.log.Warn("payment confirmed for unknown sticker, recreating", zap.String("id", id))
	} else {
		s = *existing
	}

	alreadyActive := s.Activated
	s.Activated = true
	s.PaymentConfirmed = true
	if s.ActivatedAt == nil {
		s.ActivatedAt = &now
	}
	if err := r.store.Put(ctx, s); err != nil {
		r.mu.Unlock()
		return models.Sticker{}, fmt.Errorf("store sticker: %w", err)
	}
	r.mu.Unlock()

	if alreadyActive {
		return s, nil
	}
	metrics.StickersActivatedTotal.WithLabelValues(source).Inc()
	r.log.Info("sticker activated", zap.String("id", id), zap.String("source", source))
	for _, fn := range r.listeners {
		fn(s)
	}
	return s, nil
}

// Configure sets the owner details. Only activated stickers accept them;
// unknown ids are refused the same way.
func (r *Registry) Configure(ctx context.Context, d Details) (models.Sticker, error) {
	id := NormalizeID(d.ID)
	if id == "" {
		return models.Sticker{}, fmt.Errorf("%w: id required", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.Get(ctx, id)
	if err != nil {
		return models.Sticker{}, fmt.Errorf("get sticker: %w", err)
	}
	if existing == nil || !existing.Activated {
		return models.Sticker{}, ErrForbidden
	}

	s := *existing
	s.OwnerAlias = strings.TrimSpace(d.Alias)
	s.ContactPhone = strings.TrimSpace(d.Phone)
	s.CustomMessage = strings.TrimSpace(d.Message)
	if k := strings.TrimSpace(d.Kind); k != "" {
		s.Kind = k
	}
	if err := r.store.Put(ctx, s); err != nil {
		return models.Sticker{}, fmt.Errorf("store sticker: %w", err)
	}

	r.log.Info("sticker configured", zap.String("id", id))
	return s, nil
}

func (r *Registry) Lookup(ctx context.Context, id string) (Contact, error) {
	id = NormalizeID(id)
	s, err := r.store.Get(ctx, id)
	if err != nil {
		return Contact{}, fmt.Errorf("get sticker: %w", err)
	}
	if s == nil || !s.Activated {
		return Contact{}, ErrNotFound
	}
	return Contact{
		ID:      s.ID,
		Alias:   s.OwnerAlias,
		Phone:   s.ContactPhone,
		Message: s.CustomMessage,
		Kind:    s.Kind,
	}, nil
}

// Validate tells a scanner page where to send the visitor: to the recovery
// page for activated stickers, to payment otherwise.
func (r *Registry) Validate(ctx context.Context, id string) (Validation, error) {
	id = NormalizeID(id)
	if id == "" {
		return Validation{}, fmt.Errorf("%w: id required", ErrValidation)
	}
	s, err := r.store.Get(ctx, id)
	if err != nil {
		return Validation{}, fmt.Errorf("get sticker: %w", err)
	}
	if s != nil && s.Activated {
		return Validation{Status: "activated", Redirect: "recuperar.html?id=" + id}, nil
	}
	return Validation{Status: "new", Redirect: "presentacion_pago.html?id=" + id}, nil
}

func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list stickers: %w", err)
	}
	st := Stats{Generated: len(all)}
	for _, s := range all {
		if s.Activated {
			st.Activated++
		}
	}
	return st, nil
}

func (r *Registry) List(ctx context.Context) ([]models.Sticker, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stickers: %w", err)
	}
	return all, nil
}
