package models

import "time"

type Sticker struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind,omitempty"`
	Activated        bool       `json:"activated"`
	OwnerAlias       string     `json:"owner_alias,omitempty"`
	ContactPhone     string     `json:"contact_phone,omitempty"`
	CustomMessage    string     `json:"custom_message,omitempty"`
	BatchID          string     `json:"batch_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	PaymentConfirmed bool       `json:"payment_confirmed"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
}
