// Package notify emails the result of a scheduled run to the outreach staff.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/outreach"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hmis-autoentry/notify")

const report_send = "send"

type Config struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled is false when there is no one to send to.
func (c Config) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

// RunReport is what a scheduled run has to tell.
type RunReport struct {
	Location outreach.Location
	Day      time.Time
	Entered  int
	// Remaining is the number of clients left on the failure sheet.
	Remaining int
	// Details is a rendered table of every client of the last round.
	Details string
	// Saved totals the service lines the ledger holds as saved for the day, over every run.
	Saved outreach.ServiceSet
	// FailureSheet is attached when clients remain.
	FailureSheet string
	// Err is set when the run stopped early.
	Err error
}

type Mailer struct {
	config Config
	tel    telemetry.API
	send   func(mail *email.Email) error
}

func NewMailer(config Config, tel telemetry.API) Mailer {
	assert.NotNil(tel)
	m := Mailer{
		config: config,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
	m.send = m.sendSMTP
	return m
}

func (m Mailer) sendSMTP(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(addr, nil)
	}
	return err
}

func subject(r RunReport) string {
	day := r.Day.Format("01-02-2006")
	if r.Err != nil {
		return fmt.Sprintf("[%s] HMIS auto-entry for %s stopped early", r.Location, day)
	}
	if r.Remaining > 0 {
		return fmt.Sprintf("[%s] HMIS auto-entry for %s: %d entered, %d need manual entry", r.Location, day, r.Entered, r.Remaining)
	}
	return fmt.Sprintf("[%s] HMIS auto-entry for %s: all %d entered", r.Location, day, r.Entered)
}

func (m Mailer) compose(r RunReport) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("HMIS Auto-Entry <%s>", m.config.EmailAddress)
	mail.To = m.config.To
	mail.Subject = subject(r)

	var body strings.Builder
	fmt.Fprintf(&body, "Services for %s were entered into HMIS.\n\n", r.Day.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&body, "Entered: %d\nRemaining: %d\n", r.Entered, r.Remaining)
	if len(r.Saved) > 0 {
		body.WriteString("\nServices saved into HMIS:\n")
		for _, code := range outreach.ServiceCodes() {
			fmt.Fprintf(&body, "  %-17s %d\n", code.String()+":", r.Saved.Count(code))
		}
	}
	if r.Err != nil {
		fmt.Fprintf(&body, "\nThe run stopped early: %s\n", r.Err)
	}
	if r.Remaining > 0 && r.FailureSheet != "" {
		body.WriteString("\nThe attached sheet lists the clients that still need to be entered by hand.\n")
		_, err := mail.AttachFile(r.FailureSheet)
		if err != nil {
			return nil, fmt.Errorf("attach failure sheet: %w", err)
		}
	}
	if r.Details != "" {
		body.WriteString("\n")
		body.WriteString(r.Details)
	}
	mail.Text = []byte(body.String())
	return mail, nil
}

var ErrDisabled = errors.New("notify: no smtp server or recipients configured")

// Send emails a run report to every configured recipient.
func (m Mailer) Send(ctx context.Context, r RunReport) error {
	_, span := tracer.Start(ctx, "notify:Send")
	defer span.End()

	if !m.config.Enabled() {
		return ErrDisabled
	}

	mail, err := m.compose(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compose email")
		return err
	}
	err = m.send(mail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		m.tel.ReportBroken(report_send, err)
		return err
	}
	m.tel.ReportDebug(report_send, "sent", mail.Subject)
	return nil
}
