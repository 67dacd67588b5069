package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kavishka-rasanjana/Transit-Guard/internal/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingProvider struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (p *capturingProvider) Name() string { return "capture" }

func (p *capturingProvider) Send(_ context.Context, msg mailer.Message) (mailer.SendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return mailer.SendResult{ProviderMessageID: "msg-1"}, nil
}

func (p *capturingProvider) messages() []mailer.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mailer.Message(nil), p.sent...)
}

func TestBuildHighPriorityAlertEmailEscapesFields(t *testing.T) {
	description := "<script>alert(1)</script>"
	report := ViolationReport{
		ID:               "42",
		VehicleNumber:    "NB-1234",
		RouteNumber:      "138",
		ViolationType:    "Drunk Driver",
		CurrentLocation:  "Kandy",
		OtherDescription: &description,
		Province:         "Central",
		District:         "Kandy",
		ReportedDate:     testNow,
	}

	msg := buildHighPriorityAlertEmail(report, "ops@example.lk")

	assert.Equal(t, []string{"ops@example.lk"}, msg.To)
	assert.Equal(t, "High priority passenger complaint: Drunk Driver on NB-1234", msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.Text, "Location: Kandy (Kandy, Central)")
}

func TestSubmitHighPriorityReportSendsAlert(t *testing.T) {
	store := newSeededMemStore()
	app, router := newTestApp(t, store)
	provider := &capturingProvider{}
	app.mailer = mailer.New(provider, "alerts@example.lk")
	app.cfg.AlertEmailTo = "ops@example.lk"

	fields := exampleReportFields()
	fields["ViolationType"] = "Drunk Driver"
	rec := doRequest(router, newReportRequest(t, fields))
	require.Equal(t, 200, rec.Code, rec.Body.String())

	app.background.Wait()
	sent := provider.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "alerts@example.lk", sent[0].From)
	assert.Equal(t, []string{"ops@example.lk"}, sent[0].To)
}

func TestSubmitLowerPriorityReportSendsNoAlert(t *testing.T) {
	store := newSeededMemStore()
	app, router := newTestApp(t, store)
	provider := &capturingProvider{}
	app.mailer = mailer.New(provider, "alerts@example.lk")
	app.cfg.AlertEmailTo = "ops@example.lk"

	rec := doRequest(router, newReportRequest(t, exampleReportFields()))
	require.Equal(t, 200, rec.Code, rec.Body.String())

	app.background.Wait()
	assert.Empty(t, provider.messages())
}

func TestNotifyHighPriorityWithoutRecipientIsNoop(t *testing.T) {
	app, _ := newTestApp(t, newSeededMemStore())
	provider := &capturingProvider{}
	app.mailer = mailer.New(provider, "alerts@example.lk")

	app.notifyHighPriority(ViolationReport{ID: "1", Priority: priorityHigh, ReportedDate: time.Now()})
	app.background.Wait()

	assert.Empty(t, provider.messages())
}
