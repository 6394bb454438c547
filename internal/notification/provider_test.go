package notification_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/mmdesignweb/crm-notifier/internal/notification"
)

type recordingProvider struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, msg notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return p.err
}

func TestLogProvider(t *testing.T) {
	var buf bytes.Buffer
	p := notification.NewLogProvider(slog.New(slog.NewJSONHandler(&buf, nil)))

	assert.Equal(t, "log", p.Name())
	require.NoError(t, p.Send(context.Background(), notification.Message{
		To:      []string{"a@example.com"},
		Subject: "hello",
	}))
	assert.Contains(t, buf.String(), `"subject":"hello"`)
	assert.Contains(t, buf.String(), `"to":"a@example.com"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Send(ctx, notification.Message{}), context.Canceled)
}

func TestRateLimitedProvider_Unlimited(t *testing.T) {
	inner := &recordingProvider{}
	p := notification.NewRateLimitedProvider(inner, 0, 0)
	assert.Same(t, inner, p)
}

func TestRateLimitedProvider_Delegates(t *testing.T) {
	inner := &recordingProvider{err: errors.New("smtp down")}
	p := notification.NewRateLimitedProvider(inner, 100, 2)

	assert.Equal(t, "recording", p.Name())
	err := p.Send(context.Background(), notification.Message{Subject: "s"})
	assert.EqualError(t, err, "smtp down")
	assert.Len(t, inner.sent, 1)
}

func TestRateLimitedProvider_RespectsContext(t *testing.T) {
	inner := &recordingProvider{}
	// One token every ten seconds; the first send uses the burst.
	p := notification.NewRateLimitedProvider(inner, 0.1, 1)

	require.NoError(t, p.Send(context.Background(), notification.Message{}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Send(ctx, notification.Message{})
	require.Error(t, err)
	assert.Len(t, inner.sent, 1)
}

func TestSMTPProvider_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     notification.SMTPConfig
		msg     notification.Message
		wantErr string
	}{
		{
			name:    "invalid from",
			cfg:     notification.SMTPConfig{Host: "localhost", FromAddr: "not an address"},
			msg:     notification.Message{To: []string{"a@example.com"}},
			wantErr: "invalid from address",
		},
		{
			name:    "invalid recipient",
			cfg:     notification.SMTPConfig{Host: "localhost", FromAddr: "from@example.com"},
			msg:     notification.Message{To: []string{"broken"}},
			wantErr: "invalid recipient",
		},
		{
			name:    "no recipients",
			cfg:     notification.SMTPConfig{Host: "localhost", FromAddr: "from@example.com"},
			msg:     notification.Message{To: []string{" "}},
			wantErr: "no recipients",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := notification.NewSMTPProvider(tt.cfg)
			assert.Equal(t, "smtp", p.Name())
			err := p.Send(context.Background(), tt.msg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTLSPolicyFromEncryption(t *testing.T) {
	assert.Equal(t, mail.TLSMandatory, notification.ExportedTLSPolicy("ssl_tls"))
	assert.Equal(t, mail.TLSOpportunistic, notification.ExportedTLSPolicy("starttls"))
	assert.Equal(t, mail.NoTLS, notification.ExportedTLSPolicy("none"))
	assert.Equal(t, mail.NoTLS, notification.ExportedTLSPolicy(""))
}
