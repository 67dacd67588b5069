package main

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/kavishka-rasanjana/Transit-Guard/internal/mailer"
)

const alertSendTimeout = 15 * time.Second

func buildHighPriorityAlertEmail(report ViolationReport, to string) mailer.Message {
	subject := fmt.Sprintf("High priority passenger complaint: %s on %s", report.ViolationType, report.VehicleNumber)

	where := report.CurrentLocation
	if report.District != "" || report.Province != "" {
		where = fmt.Sprintf("%s (%s)", report.CurrentLocation, strings.Trim(report.District+", "+report.Province, ", "))
	}
	description := ""
	if report.OtherDescription != nil {
		description = *report.OtherDescription
	}

	htmlBody := fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; line-height: 1.6; color: #333;">
			<h2>High priority complaint #%s</h2>
			<p><strong>%s</strong> was reported on bus <strong>%s</strong>, route %s.</p>
			<p>Location: %s</p>
			<p>Reported at: %s</p>
			<p>%s</p>
			<p style="font-size: 14px; color: #666;">Evidence files attached to the report: %d</p>
		</div>
	`,
		html.EscapeString(report.ID),
		html.EscapeString(report.ViolationType),
		html.EscapeString(report.VehicleNumber),
		html.EscapeString(report.RouteNumber),
		html.EscapeString(where),
		report.ReportedDate.Format(time.RFC1123),
		html.EscapeString(description),
		len(report.EvidenceImagePaths),
	)

	text := fmt.Sprintf(
		"High priority complaint #%s\n\n%s was reported on bus %s, route %s.\nLocation: %s\nReported at: %s\n%s\nEvidence files: %d",
		report.ID, report.ViolationType, report.VehicleNumber, report.RouteNumber, where,
		report.ReportedDate.Format(time.RFC1123), description, len(report.EvidenceImagePaths),
	)

	return mailer.Message{
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
		Text:    text,
	}
}

// notifyHighPriority emails ALERT_EMAIL_TO in the background. Failures are
// only logged.
func (a *App) notifyHighPriority(report ViolationReport) {
	if a.mailer == nil || a.cfg.AlertEmailTo == "" || report.Priority != priorityHigh {
		return
	}

	msg := buildHighPriorityAlertEmail(report, a.cfg.AlertEmailTo)
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		ctx, cancel := context.WithTimeout(a.lifecycle, alertSendTimeout)
		defer cancel()

		res, err := a.mailer.Send(ctx, msg)
		if err != nil {
			a.log.Error("failed to send high priority alert", "report_id", report.ID, "err", err)
			return
		}
		a.log.Info("sent high priority alert", "report_id", report.ID, "provider", a.mailer.ProviderName(), "message_id", res.ProviderMessageID)
	}()
}
