// Package queue wraps the watermill pub/sub primitives the pipeline runs on.
// Production uses AMQP durable queues (persistent delivery, at-least-once,
// fixed reconnect backoff); tests and single-process development use the
// in-memory gochannel pubsub, which exposes the same Publisher/Subscriber
// interfaces.
package queue

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v2/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

const reconnectBackoff = time.Second

// wmLogger is shared by every pub/sub constructed in this package. Watermill
// logs are operational noise, keep them terse.
var wmLogger = watermill.NewStdLogger(false, false)

func durableConfig(amqpURI string) amqp.Config {
	cfg := amqp.NewDurableQueueConfig(amqpURI)
	cfg.Connection.Reconnect = amqp.DefaultReconnectConfig()
	cfg.Connection.Reconnect.BackoffInitialInterval = reconnectBackoff
	cfg.Connection.Reconnect.BackoffMaxInterval = reconnectBackoff
	cfg.Connection.Reconnect.BackoffMultiplier = 1
	return cfg
}

// NewAMQPPublisher returns a publisher with persistent delivery on durable
// queues. Queues are declared on first publish.
func NewAMQPPublisher(amqpURI string) (message.Publisher, error) {
	pub, err := amqp.NewPublisher(durableConfig(amqpURI), wmLogger)
	if err != nil {
		return nil, errors.Wrap(err, "fail to create amqp publisher")
	}
	return pub, nil
}

// NewAMQPSubscriber returns a subscriber on the same durable queue topology
// as NewAMQPPublisher.
func NewAMQPSubscriber(amqpURI string) (message.Subscriber, error) {
	sub, err := amqp.NewSubscriber(durableConfig(amqpURI), wmLogger)
	if err != nil {
		return nil, errors.Wrap(err, "fail to create amqp subscriber")
	}
	return sub, nil
}

// NewGoChannel returns an in-memory pubsub implementing both Publisher and
// Subscriber. Used in tests and local single-process runs.
func NewGoChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 100,
		},
		wmLogger,
	)
}

// Publish wraps a raw JSON payload into a watermill message with a fresh
// UUID and publishes it on the named queue.
func Publish(pub message.Publisher, queue string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return pub.Publish(queue, msg)
}
