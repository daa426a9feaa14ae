package events

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// busTopic is the single gochannel topic; subject filtering happens on receipt.
const busTopic = "events"

// ChannelBus is an in-process bus over a watermill gochannel. It is used when
// NATS is not reachable and in tests. Delivery is at-most-once: a failing
// handler is logged by the caller and the message is acked.
type ChannelBus struct {
	pubSub *gochannel.GoChannel
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	onErr  func(subject string, err error)
}

func NewChannelBus(onErr func(subject string, err error)) *ChannelBus {
	ctx, cancel := context.WithCancel(context.Background())
	if onErr == nil {
		onErr = func(string, error) {}
	}
	return &ChannelBus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NopLogger{}),
		ctx:    ctx,
		cancel: cancel,
		onErr:  onErr,
	}
}

func (b *ChannelBus) Publish(ctx context.Context, event Event) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	return b.pubSub.Publish(busTopic, msg)
}

// Subscribe starts a consumer goroutine. durableName is accepted for parity
// with the NATS subscriber and ignored.
func (b *ChannelBus) Subscribe(subject string, durableName string, handler Handler) error {
	messages, err := b.pubSub.Subscribe(b.ctx, busTopic)
	if err != nil {
		return err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			event, err := Decode(msg.Payload)
			if err != nil {
				b.onErr(subject, err)
				msg.Ack()
				continue
			}
			if SubjectMatches(subject, SubjectFor(event.Type)) {
				if err := handler(b.ctx, event); err != nil {
					b.onErr(SubjectFor(event.Type), err)
				}
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *ChannelBus) Close() {
	b.cancel()
	_ = b.pubSub.Close()
	b.wg.Wait()
}
