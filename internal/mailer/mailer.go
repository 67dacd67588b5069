// Package mailer sends operational email through a pluggable provider.
package mailer

import (
	"context"
	"errors"
)

// Message is a single outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// SendResult carries the provider-assigned message id.
type SendResult struct {
	ProviderMessageID string
}

// Provider delivers messages via one backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// ErrNoRecipients is returned by Send when a message has no To address.
var ErrNoRecipients = errors.New("mailer: message has no recipients")

// Mailer fills in the default sender and forwards to its provider.
type Mailer struct {
	provider    Provider
	fromAddress string
}

// New creates a Mailer that sends through provider with fromAddress as the default sender.
func New(provider Provider, fromAddress string) *Mailer {
	return &Mailer{provider: provider, fromAddress: fromAddress}
}

// Send delivers msg. An empty From is replaced by the mailer's default sender.
func (m *Mailer) Send(ctx context.Context, msg Message) (SendResult, error) {
	if len(msg.To) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	if msg.From == "" {
		msg.From = m.fromAddress
	}
	return m.provider.Send(ctx, msg)
}

// ProviderName returns the name of the underlying provider.
func (m *Mailer) ProviderName() string {
	return m.provider.Name()
}
