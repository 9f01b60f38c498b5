package notifier

import (
	"context"

	"github.com/Azure/go-amqp"
)

// FakeSender records messages instead of sending them.
type FakeSender struct {
	Messages []*amqp.Message
	Err      error
	Closed   bool
}

func (f *FakeSender) Send(_ context.Context, msg *amqp.Message, _ *amqp.SendOptions) error {
	if f.Err != nil {
		return f.Err
	}

	f.Messages = append(f.Messages, msg)

	return nil
}

func (f *FakeSender) Close(context.Context) error {
	f.Closed = true
	return nil
}

func NewAMQPPublisherForTests(sender *FakeSender) *AMQPPublisher {
	return newAMQPPublisher(sender)
}
