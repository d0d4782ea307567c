// Package notify renders and delivers the auth service's outgoing email.
package notify

import (
	"context"
	"errors"
)

var ErrQueueClosed = errors.New("mail queue closed")

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is a rendered email ready for any transport. It is also the Kafka
// payload between the auth server and the mail relay.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Sender delivers one message synchronously.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, m Message) error

func (f SenderFunc) Send(ctx context.Context, m Message) error {
	return f(ctx, m)
}
