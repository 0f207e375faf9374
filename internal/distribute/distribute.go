// Package distribute delivers generated trend reports to subscribers over
// email and to team channels over Slack and Discord webhooks.
package distribute

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ecomtrend/ecomtrend/internal/observability"
)

// Message is one report delivery. HTML is used by channels that support rich
// bodies; Text is the fallback for plain channels.
type Message struct {
	Subject    string
	Text       string
	HTML       string
	Recipients []string
}

// Sender delivers a message over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Multi fans a message out to every configured channel. Channel failures are
// independent; one failing webhook does not stop the email run.
type Multi struct {
	senders []Sender
}

// NewMulti builds a fan-out sender. Nil senders are skipped.
func NewMulti(senders ...Sender) *Multi {
	m := &Multi{}
	for _, s := range senders {
		if s != nil {
			m.senders = append(m.senders, s)
		}
	}
	return m
}

// Channels returns the names of the configured channels.
func (m *Multi) Channels() []string {
	names := make([]string, 0, len(m.senders))
	for _, s := range m.senders {
		names = append(names, s.Name())
	}
	return names
}

// Send delivers the message to every channel and returns the joined failures.
func (m *Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, sender := range m.senders {
		if err := sender.Send(ctx, msg); err != nil {
			logSendFailure(sender.Name(), err)
			errs = append(errs, err)
			continue
		}
		logSendSuccess(sender.Name())
	}
	return errors.Join(errs...)
}

func logSendFailure(channel string, err error) {
	if observability.CLILogger == nil {
		return
	}
	observability.CLILogger.Warn("Report delivery failed",
		zap.String("channel", channel),
		zap.Error(err))
}

func logSendSuccess(channel string) {
	if observability.CLILogger == nil {
		return
	}
	observability.CLILogger.Info("Report delivered",
		zap.String("channel", channel))
}
