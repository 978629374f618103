package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}
