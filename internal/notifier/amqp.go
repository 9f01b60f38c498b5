package notifier

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Azure/go-amqp"
	"github.com/google/uuid"

	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/utils/ptr"
)

const contentTypeJSON = "application/json"

// AMQPConfig locates the broker and the address events are sent to.
type AMQPConfig struct {
	URL      string
	Target   string
	Username string
	Password string
}

// amqpSender is the part of *amqp.Sender the publisher uses.
type amqpSender interface {
	Send(ctx context.Context, msg *amqp.Message, opts *amqp.SendOptions) error
	Close(ctx context.Context) error
}

var _ amqpSender = (*amqp.Sender)(nil)

// AMQPPublisher sends events as JSON messages over AMQP 1.0.
type AMQPPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Conn
	sender amqpSender
}

// DialAMQP connects to the broker and opens a sender on cfg.Target.
func DialAMQP(ctx context.Context, cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.Target == "" {
		return nil, ErrMissingTarget
	}

	opts := &amqp.ConnOptions{}
	if cfg.Username != "" {
		opts.SASLType = amqp.SASLTypePlain(cfg.Username, cfg.Password)
	}

	conn, err := amqp.Dial(ctx, cfg.URL, opts)
	if err != nil {
		return nil, errs.Wrap(ErrConnect, err)
	}

	session, err := conn.NewSession(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, errs.Wrap(ErrConnect, err)
	}

	sender, err := session.NewSender(ctx, cfg.Target, nil)
	if err != nil {
		_ = conn.Close()
		return nil, errs.Wrap(ErrConnect, err)
	}

	return &AMQPPublisher{conn: conn, sender: sender}, nil
}

func newAMQPPublisher(sender amqpSender) *AMQPPublisher {
	return &AMQPPublisher{sender: sender}
}

// Message builds the AMQP message carrying event.
func Message(event Event) (*amqp.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, errs.Wrap(ErrMarshalEvent, err)
	}

	msg := amqp.NewMessage(body)
	msg.Properties = &amqp.MessageProperties{
		MessageID:   uuid.NewString(),
		ContentType: ptr.PointTo(contentTypeJSON),
		Subject:     ptr.PointTo(string(event.Type)),
	}
	msg.ApplicationProperties = map[string]any{
		"source_id": event.SourceID,
		"state":     event.State,
		"test":      event.Test,
	}

	return msg, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.sender.Send(ctx, msg, nil)
	if err != nil {
		return errs.Wrap(ErrPublish, err)
	}

	return nil
}

func (p *AMQPPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.sender.Close(ctx)

	if p.conn != nil {
		closeErr := p.conn.Close()
		if err == nil {
			err = closeErr
		}
	}

	return err
}
