package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de alertas operativas por correo.
type Sender interface {
	SendAlert(ctx context.Context, subject string, body string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendAlert(_ context.Context, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
