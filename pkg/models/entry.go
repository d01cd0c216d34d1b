package models

import "time"

// Entry is one found report or one lost search.
//
// Key and Category are the normalized pair the matching engine compares;
// Payload keeps whatever extra fields the submitter sent.
type Entry struct {
	Key        string            `json:"nro"`
	Category   string            `json:"categoria"`
	Contact    string            `json:"contacto,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	InternalID int64             `json:"internal_id,omitempty"` // found entries only
}
