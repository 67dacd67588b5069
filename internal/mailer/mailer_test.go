package mailer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	sent []Message
}

func (r *recordingProvider) Name() string { return "recording" }

func (r *recordingProvider) Send(_ context.Context, msg Message) (SendResult, error) {
	r.sent = append(r.sent, msg)
	return SendResult{ProviderMessageID: "rec-1"}, nil
}

func TestMailerSendFillsDefaultSender(t *testing.T) {
	provider := &recordingProvider{}
	m := New(provider, "alerts@transitguard.local")

	result, err := m.Send(context.Background(), Message{To: []string{"ops@example.com"}, Subject: "High priority"})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", result.ProviderMessageID)
	require.Len(t, provider.sent, 1)
	assert.Equal(t, "alerts@transitguard.local", provider.sent[0].From)
}

func TestMailerSendKeepsExplicitSender(t *testing.T) {
	provider := &recordingProvider{}
	m := New(provider, "alerts@transitguard.local")

	_, err := m.Send(context.Background(), Message{From: "other@example.com", To: []string{"ops@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", provider.sent[0].From)
}

func TestMailerSendRejectsEmptyRecipients(t *testing.T) {
	m := New(&recordingProvider{}, "alerts@transitguard.local")

	_, err := m.Send(context.Background(), Message{Subject: "nobody"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestLogProviderSend(t *testing.T) {
	provider := NewLogProvider(slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := provider.Send(context.Background(), Message{To: []string{"ops@example.com"}, Subject: "x"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.ProviderMessageID, "log-"))
	assert.Equal(t, "log", provider.Name())
}

func TestResendProviderName(t *testing.T) {
	assert.Equal(t, "resend", NewResendProvider("fake-api-key").Name())
}

func TestMailerProviderName(t *testing.T) {
	assert.Equal(t, "recording", New(&recordingProvider{}, "").ProviderName())
	assert.Equal(t, "log", New(NewLogProvider(slog.New(slog.NewTextHandler(io.Discard, nil))), "").ProviderName())
}
