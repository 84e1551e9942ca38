package model

import (
	"encoding/json"
	"time"
)

type LinkStatus string

const (
	LinkStatusSuccess LinkStatus = "success"
	LinkStatusError   LinkStatus = "error"
)

// LinkEvent is pushed to dashboard subscribers after a callback completes.
type LinkEvent struct {
	Type      string     `json:"type"`
	CompanyID string     `json:"company_id"`
	Platform  Platform   `json:"platform"`
	Status    LinkStatus `json:"status"`
	At        time.Time  `json:"at"`
}

// WebhookEvent is a provider delivery normalized for downstream consumers.
type WebhookEvent struct {
	ID         string          `json:"id"`
	Provider   string          `json:"provider"`
	Topic      string          `json:"topic,omitempty"`
	Shop       string          `json:"shop,omitempty"`
	DeliveryID string          `json:"delivery_id,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

type DataDeletionResponse struct {
	URL              string `json:"url"`
	ConfirmationCode string `json:"confirmation_code"`
}
