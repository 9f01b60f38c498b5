package context

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrGetRequestID = errors.New("no requestID found in context")
	ErrGetIdentity  = errors.New("no identity found in context")
)

// Identity is the caller as asserted by the gateway in front of the API.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

type key string

const (
	requestID   = key("requestID")
	identityKey = key("identity")
)

func InjectRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestID, uuid.NewString())
}

func GetRequestID(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestID).(string)
	if !ok || requestID == "" {
		return "", ErrGetRequestID
	}

	return requestID, nil
}

func InjectIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func GetIdentity(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(identityKey).(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, ErrGetIdentity
	}

	return identity, nil
}

// WithRequestID carries an existing request id, e.g. into a task handler.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestID, id)
}
