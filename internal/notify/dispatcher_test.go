package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent  []EmailMessage
	err   error
	panic bool
}

func (s *fakeSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.panic {
		panic("sender exploded")
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestDispatcherDelivers(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, nil)

	delivered := d.Notify(context.Background(), "a@example.com", "Appointment Confirmation", "see you soon")
	assert.True(t, delivered)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@example.com", sender.sent[0].To)
}

func TestDispatcherWithoutSenderReportsFalse(t *testing.T) {
	d := NewDispatcher(nil, nil)
	assert.False(t, d.Notify(context.Background(), "a@example.com", "subject", "body"))
}

func TestDispatcherSendErrorReportsFalse(t *testing.T) {
	d := NewDispatcher(&fakeSender{err: errors.New("smtp down")}, nil)
	assert.False(t, d.Notify(context.Background(), "a@example.com", "subject", "body"))
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	d := NewDispatcher(&fakeSender{panic: true}, nil)
	assert.False(t, d.Notify(context.Background(), "a@example.com", "subject", "body"))
}
