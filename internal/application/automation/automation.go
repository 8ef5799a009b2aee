// Package automation turns a report file into HMIS entries: it prepares the sheets operators
// work from and runs the batch against a fresh HMIS session.
package automation

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"hmis-autoentry/internal/batch"
	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hmis-autoentry/automation")

const (
	report_read    = "report.read"
	report_connect = "hmis.connect"
	report_round   = "round"
)

// Session is a logged in HMIS session.
type Session interface {
	batch.Driver
	Close() error
}

// Connector opens a new HMIS session, it is called once per automated round.
type Connector func(ctx context.Context) (Session, error)

type Options struct {
	Location  outreach.Location
	OutputDir string
	ItemTable report.ItemTable
	// Preferences are the enrollment programs to record services against, most preferred first.
	Preferences      outreach.EnrollmentPreference
	UpdateEngagement bool
}

type Automator struct {
	opts    Options
	connect Connector
	tel     telemetry.API
}

func NewAutomator(opts Options, connect Connector, tel telemetry.API) *Automator {
	assert.NotNil(connect)
	assert.NotNil(tel)
	assert.NotEmptyStr(string(opts.Location))
	assert.NotEmptyStr(opts.OutputDir)

	if opts.ItemTable == "" {
		opts.ItemTable = report.ITEMS_LEGACY
	}

	return &Automator{
		opts:    opts,
		connect: connect,
		tel:     telemetry.NewScopedAPI("automation", tel),
	}
}

// Round is the result of automating one sheet.
type Round struct {
	Day     time.Time
	Summary batch.Summary
	// Remaining is the number of clients left on the failure sheet.
	Remaining   int
	FailurePath string
}

func (a *Automator) load(path string) (time.Time, *report.Sheet, []report.Entry, error) {
	day, err := report.DateFromFileName(path)
	if err != nil {
		return time.Time{}, nil, nil, err
	}
	sheet, err := report.ReadSheet(path)
	if err != nil {
		a.tel.ReportBroken(report_read, path, err)
		return time.Time{}, nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	entries, err := report.Transform(sheet, a.opts.ItemTable)
	if err != nil {
		a.tel.ReportBroken(report_read, path, err)
		return time.Time{}, nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return day, sheet, entries, nil
}

// FailurePath is where the remaining clients of a day are written.
func (a *Automator) FailurePath(day time.Time) string {
	return filepath.Join(a.opts.OutputDir, report.FailureFileName(a.opts.Location, day))
}

// WriteManual writes the manual entry sheet of a report into the output directory.
func (a *Automator) WriteManual(path string) (string, error) {
	day, _, entries, err := a.load(path)
	if err != nil {
		return "", err
	}
	out := filepath.Join(a.opts.OutputDir, report.ManualFileName(a.opts.Location, day))
	err = report.WriteManualSheet(out, report.ManualSheetName(day), entries)
	if err != nil {
		return "", err
	}
	a.tel.ReportDebug("manual sheet written", out, len(entries))
	return out, nil
}

// Automate enters every client of a report (or of a previous round's failure sheet) into HMIS.
// The failure sheet of the report's day is rewritten from the input before the first client,
// so it always ends up holding exactly the clients that were not entered.
func (a *Automator) Automate(ctx context.Context, path string) (Round, error) {
	ctx, span := tracer.Start(ctx, "automation:Automate")
	defer span.End()
	span.SetAttributes(attribute.String("file", filepath.Base(path)))

	day, sheet, entries, err := a.load(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Round{}, err
	}
	round := Round{Day: day}
	if len(entries) == 0 {
		return round, batch.ErrEmptyInput
	}

	failures, err := report.NewFailureSet(a.FailurePath(day), sheet)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return round, fmt.Errorf("write failure sheet: %w", err)
	}
	round.FailurePath = failures.Path()
	round.Remaining = failures.Len()

	session, err := a.connect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open hmis session")
		a.tel.ReportBroken(report_connect, err)
		return round, err
	}
	defer func() {
		err := session.Close()
		if err != nil {
			a.tel.ReportWarning(report_connect, "close", err)
		}
	}()

	runner := batch.NewRunner(session, failures, batch.Options{
		ServiceDate:      report.ServiceDate(day),
		Preferences:      a.opts.Preferences,
		UpdateEngagement: a.opts.UpdateEngagement,
	}, a.tel)
	round.Summary, err = runner.Run(ctx, entries)
	round.Remaining = failures.Len()

	a.tel.ReportDebug(report_round, filepath.Base(path), round.Summary.Entered(), round.Remaining)
	span.SetAttributes(
		attribute.Int("entered", round.Summary.Entered()),
		attribute.Int("remaining", round.Remaining),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "round stopped early")
	}
	return round, err
}

// ListItems lists the item tokens of a report along with their known category.
func (a *Automator) ListItems(path string) ([]report.ItemToken, error) {
	sheet, err := report.ReadSheet(path)
	if err != nil {
		return nil, err
	}
	return report.ListItems(sheet), nil
}
