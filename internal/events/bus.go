package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus publishes events through a watermill publisher.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	shared     bool
	logger     *slog.Logger
}

// NewBus wraps a watermill publisher and subscriber pair.
func NewBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *Bus {
	return &Bus{publisher: pub, subscriber: sub, shared: any(pub) == any(sub), logger: logger}
}

// Open creates a bus from a spec:
//
//	"" or "none"          no bus, returns nil
//	"gochannel"           in-process pub/sub
//	"kafka://b1:9092,b2"  Kafka brokers
func Open(spec string, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	switch {
	case spec == "" || spec == "none":
		return nil, nil
	case spec == "gochannel":
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)
		return NewBus(pubSub, pubSub, logger), nil
	case strings.HasPrefix(spec, "kafka://"):
		brokers := strings.Split(strings.TrimPrefix(spec, "kafka://"), ",")
		return openKafka(brokers, wmLogger, logger)
	default:
		return nil, fmt.Errorf("unsupported event bus %q", spec)
	}
}

func openKafka(brokers []string, wmLogger watermill.LoggerAdapter, logger *slog.Logger) (*Bus, error) {
	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
		},
		wmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         "burstgraph-observers",
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}
	return NewBus(publisher, subscriber, logger), nil
}

// Publish implements Publisher.
func (b *Bus) Publish(ctx context.Context, ev NodeStatusChanged) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(RunIDMetadataKey, ev.RunID)
	msg.Metadata.Set(NodeIDMetadataKey, ev.NodeID)
	msg.Metadata.Set(StatusMetadataKey, ev.Status.String())
	return b.publisher.Publish(Topic, msg)
}

// Subscribe streams decoded events until ctx is done. Messages that do not
// decode are acknowledged and dropped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan NodeStatusChanged, error) {
	messages, err := b.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}
	out := make(chan NodeStatusChanged)
	go func() {
		defer close(out)
		for msg := range messages {
			var ev NodeStatusChanged
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Warn("Dropping undecodable event.", "uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close closes the publisher and the subscriber.
func (b *Bus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}
	if b.subscriber != nil && !b.shared {
		return b.subscriber.Close()
	}
	return nil
}
