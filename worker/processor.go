// Package worker hosts the per-kind queue consumers. Each worker extracts
// the upstream item from its broker message, resolves the implicit profile,
// persists into the store with idempotent conflict handling, and notifies
// the internal webhook when a row was actually inserted.
package worker

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

// Handler processes one raw broker payload of its kind.
type Handler interface {
	Kind() protocol.Kind
	Process(payload []byte) (Result, error)
}

// Processor carries the dependencies shared by all kind handlers.
type Processor struct {
	DB       *gorm.DB
	Notifier *NotifierClient
}

func NewProcessor(db *gorm.DB, notifier *NotifierClient) *Processor {
	return &Processor{DB: db, Notifier: notifier}
}

// ResolveProfile returns the internal id of the profile with the given
// external id, inserting it first if absent. Safe under concurrent
// processing of messages about the same new profile: the insert is
// OnConflict-DoNothing on the external id unique index, so at most one
// insert wins and every caller observes the winning row on re-select.
func (p *Processor) ResolveProfile(externalId string, name string, kind model.ProfileKind) (string, error) {
	var profile model.Profile
	res := p.DB.Where("external_id = ?", externalId).First(&profile)
	if res.Error == nil {
		return profile.Id, nil
	}
	if res.Error != gorm.ErrRecordNotFound {
		return "", res.Error
	}

	profile = model.Profile{
		Id:         uuid.New().String(),
		ExternalId: externalId,
		Kind:       kind,
		Name:       name,
	}
	res = p.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&profile)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return profile.Id, nil
	}

	// Lost the race, another worker inserted the profile first.
	var winner model.Profile
	if err := p.DB.Where("external_id = ?", externalId).First(&winner).Error; err != nil {
		return "", err
	}
	return winner.Id, nil
}

// notify posts the seeded_event envelope for the kind. Delivery is
// best-effort: failures are logged and never fail the message.
func (p *Processor) notify(kind protocol.Kind, externalId string) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Notify(kind, externalId); err != nil {
		Logger.Log.Errorf("fail to deliver %s webhook for %s: %v", kind, externalId, err)
	}
}

// Consume runs the single consumer loop of a handler on its kind's queue.
// It returns when the subscription channel closes or ctx is canceled, so the
// caller can re-enter it with a backoff.
func Consume(ctx context.Context, sub message.Subscriber, h Handler) error {
	messages, err := sub.Subscribe(ctx, h.Kind().QueueName())
	if err != nil {
		return err
	}

	for msg := range messages {
		result, err := h.Process(msg.Payload)
		switch result {
		case TransientFailure:
			Logger.Log.Errorf("%s worker transient failure, message will be redelivered: %v", h.Kind(), err)
			msg.Nack()
		case PoisonMessage, MissingDependency:
			// Dropped for good: requeueing can never make these succeed.
			Logger.Log.Errorf("%s worker dropped message (%s): %v, payload: %s", h.Kind(), result, err, string(msg.Payload))
			msg.Ack()
		default:
			msg.Ack()
		}
	}
	return nil
}
