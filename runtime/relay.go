package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"courier/contract"
	"courier/domain"
	"courier/repositories"
	"courier/storage"

	"github.com/google/uuid"
)

// Relay validates inbound envelopes, persists them, and fans the resulting
// message out to every connection of the recipient. Persisting strictly
// precedes fan-out: an observer never sees a relayed message that failed
// to persist.
type Relay struct {
	log         *slog.Logger
	registry    contract.IRegistry
	messages    repositories.IMessageRepository
	attachments storage.IAttachmentStore
}

func NewRelay(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, attachments storage.IAttachmentStore) *Relay {
	return &Relay{
		log:         log,
		registry:    registry,
		messages:    messages,
		attachments: attachments,
	}
}

// HandleInbound processes one envelope from a connection.
//
// Malformed envelopes (no recipient, or neither text nor file) are dropped
// silently; so are envelopes from connections whose identity has not
// resolved, since the sender cannot be attributed. An attachment write
// failure degrades the message to text-only rather than aborting it. A
// persist failure is returned to the caller and nothing is fanned out.
// No acknowledgement ever goes back to the sender.
func (r *Relay) HandleInbound(ctx context.Context, from contract.Conn, env domain.Envelope) error {
	sender, resolved := from.Identity()
	if !resolved {
		r.log.Debug("Envelope from unresolved connection dropped")
		return nil
	}
	if env.Recipient == "" || (env.Text == "" && env.File == nil) {
		r.log.Debug("Malformed envelope dropped", "sender", sender.ID)
		return nil
	}
	if env.Recipient == sender.ID {
		r.log.Debug("Self-addressed envelope dropped", "sender", sender.ID)
		return nil
	}

	var ref string
	if env.File != nil {
		data, err := DecodeDataURL(env.File.Data)
		if err == nil {
			ref, err = r.attachments.Store(env.File.Name, data)
		}
		if err != nil {
			// Partial-failure tolerance: keep whatever text was supplied.
			r.log.Error("Attachment write failed", "sender", sender.ID, "error", err)
			ref = ""
		}
	}
	if env.Text == "" && ref == "" {
		r.log.Warn("Envelope degraded to nothing, dropped", "sender", sender.ID)
		return nil
	}

	message := domain.Message{
		ID:            uuid.New(),
		Sender:        sender.ID,
		Recipient:     env.Recipient,
		Text:          env.Text,
		AttachmentRef: ref,
		CreatedAt:     time.Now().UTC(),
	}

	if err := r.messages.StoreMessage(toDiskMessage(message)); err != nil {
		// Dropped message: must not reach the recipient unpersisted.
		return fmt.Errorf("persist message: %w", err)
	}

	delivery := domain.DeliveryFromMessage(message)
	for _, conn := range r.registry.FindByIdentity(env.Recipient) {
		if err := conn.Sink().Deliver(ctx, delivery); err != nil {
			r.log.Warn("Delivery to recipient connection failed",
				"recipient", env.Recipient, "error", err)
		}
	}
	return nil
}

// DecodeDataURL extracts the bytes of a base64 data URL
// ("data:image/png;base64,...."). A payload without the data URL header is
// treated as plain base64.
func DecodeDataURL(payload string) ([]byte, error) {
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}

func toDiskMessage(m domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:        m.ID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Text:      m.Text,
		FileRef:   m.AttachmentRef,
		At:        m.CreatedAt,
	}
}
