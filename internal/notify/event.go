package notify

import (
	"time"

	"santua/internal/matching"
	"santua/pkg/models"
)

const (
	EventMatch            = "match"
	EventStickerActivated = "sticker.activated"
)

// Event is the envelope every sink receives. Exactly one of the payload
// groups is set, depending on Type.
type Event struct {
	Type     string          `json:"type"`
	Key      string          `json:"key"`
	Category string          `json:"categoria,omitempty"`
	Trigger  string          `json:"trigger,omitempty"`
	Found    *models.Entry   `json:"found,omitempty"`
	Lost     *models.Entry   `json:"lost,omitempty"`
	Sticker  *models.Sticker `json:"sticker,omitempty"`
	At       time.Time       `json:"at"`
}

func FromMatch(ev matching.MatchEvent) Event {
	found, lost := ev.Found, ev.Lost
	return Event{
		Type:     EventMatch,
		Key:      ev.Key,
		Category: ev.Category,
		Trigger:  string(ev.Trigger),
		Found:    &found,
		Lost:     &lost,
		At:       ev.At,
	}
}

func FromActivation(s models.Sticker) Event {
	at := s.CreatedAt
	if s.ActivatedAt != nil {
		at = *s.ActivatedAt
	}
	return Event{
		Type:    EventStickerActivated,
		Key:     s.ID,
		Sticker: &s,
		At:      at,
	}
}
