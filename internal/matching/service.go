package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"santua/internal/identifier"
	"santua/pkg/metrics"
	"santua/pkg/models"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("entry not found")
)

type Status string

const (
	StatusRegistered Status = "registered"
	StatusDuplicate  Status = "duplicate"
	StatusMatch      Status = "match"
)

type Submission struct {
	Category   string
	Identifier string
	Contact    string
	Payload    map[string]string
}

// Result is the classification of one submission. Entry is the stored entry
// for the submitted pair; Match is the counterpart from the other collection.
type Result struct {
	Status  Status        `json:"status"`
	Entry   models.Entry  `json:"entry"`
	Match   *models.Entry `json:"match,omitempty"`
	Message string        `json:"message,omitempty"`
}

// MatchEvent is emitted every time a submission classifies as a match.
type MatchEvent struct {
	Trigger  Kind         `json:"trigger"`
	Key      string       `json:"nro"`
	Category string       `json:"categoria"`
	Found    models.Entry `json:"found"`
	Lost     models.Entry `json:"lost"`
	At       time.Time    `json:"at"`
}

type DeleteCounts struct {
	Found int `json:"found_removed"`
	Lost  int `json:"lost_removed"`
}

type Snapshot struct {
	Found []models.Entry `json:"found"`
	Lost  []models.Entry `json:"lost"`
}

type Counts struct {
	Found int `json:"total_found"`
	Lost  int `json:"total_lost"`
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMatchListener registers fn to run after every match, outside the
// store lock. fn must not block.
func WithMatchListener(fn func(MatchEvent)) Option {
	return func(s *Service) { s.listeners = append(s.listeners, fn) }
}

// Service is the matching engine. mu covers every check-and-mutate
// sequence, so two submissions for the same pair never both insert.
type Service struct {
	mu        sync.Mutex
	store     Store
	log       *zap.Logger
	now       func() time.Time
	lastID    int64
	listeners []func(MatchEvent)
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SubmitFound(ctx context.Context, sub Submission) (Result, error) {
	return s.submit(ctx, KindFound, sub)
}

func (s *Service) SubmitLost(ctx context.Context, sub Submission) (Result, error) {
	return s.submit(ctx, KindLost, sub)
}

func (s *Service) submit(ctx context.Context, kind Kind, sub Submission) (Result, error) {
	key := identifier.Normalize(sub.Identifier)
	if key == "" {
		return Result{}, fmt.Errorf("%w: identifier required", ErrValidation)
	}
	category := identifier.Category(sub.Category)

	s.mu.Lock()
	existing, err := s.store.Find(ctx, kind, key, category)
	if err != nil {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("find %s: %w", kind, err)
	}
	counterpart, err := s.store.Find(ctx, kind.other(), key, category)
	if err != nil {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("find %s: %w", kind.other(), err)
	}

	var entry models.Entry
	if existing == nil {
		entry = models.Entry{
			Key:       key,
			Category:  category,
			Contact:   sub.Contact,
			Payload:   sub.Payload,
			CreatedAt: s.now().UTC(),
		}
		if kind == KindFound {
			entry.InternalID = s.nextID()
		}
		if err := s.store.Insert(ctx, kind, entry); err != nil {
			s.mu.Unlock()
			return Result{}, fmt.Errorf("insert %s: %w", kind, err)
		}
		s.log.Info("entry registered",
			zap.String("kind", string(kind)),
			zap.String("category", category),
			zap.String("key", key),
		)
	} else {
		entry = *existing
	}
	s.mu.Unlock()

	var res Result
	switch {
	case counterpart != nil:
		res = Result{Status: StatusMatch, Entry: entry, Match: counterpart}
		s.emitMatch(kind, entry, *counterpart)
	case existing != nil:
		res = Result{Status: StatusDuplicate, Entry: entry, Message: duplicateMessage(kind, key, category)}
	default:
		res = Result{Status: StatusRegistered, Entry: entry}
	}

	metrics.SubmissionsTotal.WithLabelValues(string(kind), string(res.Status)).Inc()
	return res, nil
}

func (s *Service) emitMatch(trigger Kind, entry, counterpart models.Entry) {
	ev := MatchEvent{
		Trigger:  trigger,
		Key:      entry.Key,
		Category: entry.Category,
		At:       s.now().UTC(),
	}
	if trigger == KindFound {
		ev.Found, ev.Lost = entry, counterpart
	} else {
		ev.Found, ev.Lost = counterpart, entry
	}

	s.log.Info("match detected",
		zap.String("trigger", string(trigger)),
		zap.String("category", ev.Category),
		zap.String("key", ev.Key),
	)
	for _, fn := range s.listeners {
		fn(ev)
	}
}

// nextID hands out strictly increasing millisecond-based ids. Caller holds mu.
func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func duplicateMessage(kind Kind, key, category string) string {
	if kind == KindFound {
		return fmt.Sprintf("identifier %s is already registered as found in category %s", key, category)
	}
	return fmt.Sprintf("there is already an active search for %s in category %s", key, category)
}

// DeleteMatch removes every entry with key from both collections,
// whatever their category.
func (s *Service) DeleteMatch(ctx context.Context, key string) (DeleteCounts, error) {
	key = identifier.Normalize(key)
	if key == "" {
		return DeleteCounts{}, fmt.Errorf("%w: key required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.store.DeleteAll(ctx, KindFound, key)
	if err != nil {
		return DeleteCounts{}, fmt.Errorf("delete found: %w", err)
	}
	lost, err := s.store.DeleteAll(ctx, KindLost, key)
	if err != nil {
		return DeleteCounts{Found: found}, fmt.Errorf("delete lost: %w", err)
	}

	metrics.EntriesDeletedTotal.WithLabelValues(string(KindFound)).Add(float64(found))
	metrics.EntriesDeletedTotal.WithLabelValues(string(KindLost)).Add(float64(lost))
	s.log.Info("match cleared", zap.String("key", key), zap.Int("found", found), zap.Int("lost", lost))
	return DeleteCounts{Found: found, Lost: lost}, nil
}

func (s *Service) DeleteFound(ctx context.Context, key string) error {
	return s.deleteFirst(ctx, KindFound, key)
}

func (s *Service) DeleteLost(ctx context.Context, key string) error {
	return s.deleteFirst(ctx, KindLost, key)
}

func (s *Service) deleteFirst(ctx context.Context, kind Kind, key string) error {
	key = identifier.Normalize(key)
	if key == "" {
		return fmt.Errorf("%w: key required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.store.DeleteFirst(ctx, kind, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if !ok {
		return ErrNotFound
	}
	metrics.EntriesDeletedTotal.WithLabelValues(string(kind)).Inc()
	s.log.Info("entry deleted", zap.String("kind", string(kind)), zap.String("key", key))
	return nil
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	found, err := s.store.List(ctx, KindFound)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list found: %w", err)
	}
	lost, err := s.store.List(ctx, KindLost)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list lost: %w", err)
	}
	return Snapshot{Found: found, Lost: lost}, nil
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	found, err := s.store.Count(ctx, KindFound)
	if err != nil {
		return Counts{}, fmt.Errorf("count found: %w", err)
	}
	lost, err := s.store.Count(ctx, KindLost)
	if err != nil {
		return Counts{}, fmt.Errorf("count lost: %w", err)
	}
	return Counts{Found: found, Lost: lost}, nil
}
