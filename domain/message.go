// Package domain contains core concepts of the messaging relay.
// This file defines Message records and the wire envelopes around them.
// Messages are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable direct message between two identities.
// At least one of Text and AttachmentRef is set.
type Message struct {
	ID            uuid.UUID
	Sender        string
	Recipient     string
	Text          string
	AttachmentRef string
	CreatedAt     time.Time
}

// Envelope is the inbound client payload.
type Envelope struct {
	Recipient string       `json:"recipient"`
	Text      string       `json:"text,omitempty"`
	File      *FilePayload `json:"file,omitempty"`
}

// FilePayload carries an attachment as a base64 data URL.
type FilePayload struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Delivery is the outbound payload pushed to each connection of the
// recipient after the message has been persisted.
type Delivery struct {
	ID            string `json:"_id"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	Text          string `json:"text,omitempty"`
	AttachmentRef string `json:"file,omitempty"`
}

// DeliveryFromMessage maps a persisted message to its wire form.
func DeliveryFromMessage(m Message) Delivery {
	return Delivery{
		ID:            m.ID.String(),
		Sender:        m.Sender,
		Recipient:     m.Recipient,
		Text:          m.Text,
		AttachmentRef: m.AttachmentRef,
	}
}
