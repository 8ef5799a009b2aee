// Package batch enters every client of a report into HMIS, one client at a time, keeping the
// sheet of remaining clients up to date as it goes.
package batch

import (
	"context"
	"errors"
	"fmt"

	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/hmis"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("hmis-autoentry/batch")
var meter = otel.Meter("hmis-autoentry/batch")
var outcomeCounter, _ = meter.Int64Counter(
	"client_outcomes",
	metric.WithDescription("clients processed, by search strategy and outcome"),
)

var (
	// ErrEmptyInput is returned when a batch has no clients at all.
	ErrEmptyInput = errors.New("report has no clients")
	// ErrInsufficientData is the failure of a client with neither an id, a birthdate nor a
	// full name.
	ErrInsufficientData = errors.New("not enough data to search for client")
	// ErrNameSearchUnsupported is the failure of a client that could only be searched by name.
	ErrNameSearchUnsupported = errors.New("searching by name alone is not supported")
)

const (
	report_client     = "client"
	report_engagement = "client.engagement"
	report_summary    = "summary"
)

// Driver is the part of hmis.Driver the runner uses.
type Driver interface {
	LocateByID(ctx context.Context, id, first, last string) error
	LocateByBirthdate(ctx context.Context, birthdate, first, last string) error
	EnterServices(ctx context.Context, req hmis.ServiceRequest) error
	UpdateDateOfEngagement(ctx context.Context, prefs outreach.EnrollmentPreference, serviceDate string) error
}

// Checkpoint durably forgets a report row once it has been entered.
type Checkpoint interface {
	Remove(row int) error
}

type Options struct {
	// ServiceDate is the MMDDYYYY date services are recorded on.
	ServiceDate string
	Preferences outreach.EnrollmentPreference
	// UpdateEngagement moves the date of engagement of each located client's enrollment to
	// the service date before entering services.
	UpdateEngagement bool
}

type Runner struct {
	driver   Driver
	failures Checkpoint
	opts     Options
	tel      telemetry.API
}

func NewRunner(driver Driver, failures Checkpoint, opts Options, tel telemetry.API) *Runner {
	assert.NotNil(driver)
	assert.NotNil(failures)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.ServiceDate)

	return &Runner{
		driver:   driver,
		failures: failures,
		opts:     opts,
		tel:      telemetry.NewScopedAPI("batch", tel),
	}
}

// Run processes every entry in order. A client's failure never stops the batch, Run only
// returns an error when the input is empty, when ctx is cancelled (checked between clients) or
// when the remaining sheet can no longer be written.
func (r *Runner) Run(ctx context.Context, entries []report.Entry) (Summary, error) {
	summary := Summary{ServiceDate: r.opts.ServiceDate}
	if len(entries) == 0 {
		return summary, ErrEmptyInput
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		// a client in progress is never abandoned half way
		result := r.process(context.WithoutCancel(ctx), entry)
		summary.Results = append(summary.Results, result)

		if result.Err != nil {
			r.tel.ReportWarning(report_client, entry.Query.String(), result.Outcome.String(), result.Err)
			continue
		}
		r.tel.ReportDebug(report_client, entry.Query.String(), result.Outcome.String())

		err := r.failures.Remove(entry.Row)
		if err != nil {
			r.tel.ReportBroken(report_client, "remaining sheet could not be written", err)
			return summary, err
		}
	}

	r.tel.ReportCount(report_summary, int64(summary.Entered()))
	return summary, nil
}

func (r *Runner) process(ctx context.Context, entry report.Entry) Result {
	q := entry.Query
	strategy := q.Strategy()

	ctx, span := tracer.Start(ctx, "batch:client")
	defer span.End()
	span.SetAttributes(
		attribute.String("client", q.Key()),
		attribute.String("strategy", strategy.String()),
		attribute.Int("lines", len(entry.Services)),
	)

	result := Result{Entry: entry, Strategy: strategy}
	result.Op, result.Err = r.enter(ctx, entry)
	result.Outcome = hmis.OutcomeOf(result.Op, result.Err)

	outcomeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy.String()),
		attribute.String("outcome", result.Outcome.String()),
	))
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Outcome.String())
	}
	return result
}

// enter locates the client and records their services, it returns the operation that
// decided the outcome.
func (r *Runner) enter(ctx context.Context, entry report.Entry) (string, error) {
	q := entry.Query

	var err error
	op := hmis.OP_LOCATE_BY_ID
	switch q.Strategy() {
	case outreach.SEARCH_BY_ID:
		err = r.driver.LocateByID(ctx, q.ID, q.FirstName, q.LastName)
	case outreach.SEARCH_BY_BIRTHDATE:
		op = hmis.OP_LOCATE_BY_BIRTHDAY
		err = r.driver.LocateByBirthdate(ctx, q.Birthdate, q.FirstName, q.LastName)
	case outreach.SEARCH_BY_NAME:
		err = ErrNameSearchUnsupported
	default:
		err = ErrInsufficientData
	}
	if err != nil {
		return op, fmt.Errorf("locate %s: %w", q, err)
	}

	if r.opts.UpdateEngagement {
		err = r.driver.UpdateDateOfEngagement(ctx, r.opts.Preferences, r.opts.ServiceDate)
		if err != nil {
			// the services can still be recorded against the enrollment
			r.tel.ReportWarning(report_engagement, q.String(), err)
		}
	}

	err = r.driver.EnterServices(ctx, hmis.ServiceRequest{
		Client:      q,
		Preferences: r.opts.Preferences,
		ServiceDate: r.opts.ServiceDate,
		Lines:       entry.Services,
	})
	if err != nil {
		return hmis.OP_ENTER_SERVICES, fmt.Errorf("enter services of %s: %w", q, err)
	}
	return hmis.OP_ENTER_SERVICES, nil
}
