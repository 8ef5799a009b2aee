// Package schedule runs the whole daily routine: fetch the day's report, prepare the manual
// sheet, enter the clients into HMIS and retry the ones that failed.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hmis-autoentry/internal/application/automation"
	"hmis-autoentry/internal/batch"
	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/components/chrono"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/ledger"
	"hmis-autoentry/internal/notify"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hmis-autoentry/schedule")

const (
	report_download = "download"
	report_manual   = "manual"
	report_round    = "round"
	report_notify   = "notify"
	report_cron     = "cron"
)

// Downloader fetches the report by client of a day into a directory.
type Downloader interface {
	Download(ctx context.Context, day time.Time, dir string) (string, error)
}

// Automation is the part of automation.Automator the driver uses.
type Automation interface {
	WriteManual(path string) (string, error)
	Automate(ctx context.Context, path string) (automation.Round, error)
	FailurePath(day time.Time) string
}

// Notifier is told how every run went.
type Notifier interface {
	Send(ctx context.Context, r notify.RunReport) error
}

// SavedServices lists the service lines already saved into HMIS for a MMDDYYYY service date.
type SavedServices interface {
	ForDate(ctx context.Context, date string) ([]ledger.SavedLine, error)
}

type Options struct {
	Location  outreach.Location
	OutputDir string
	// Rounds is the number of retries on the failure sheet after the first run.
	Rounds       int
	SkipFirstRun bool
}

type Driver struct {
	opts       Options
	downloader Downloader
	automation Automation
	notifier   Notifier
	saved      SavedServices
	tel        telemetry.API
}

// NewDriver creates a Driver, notifier and saved may be nil.
func NewDriver(
	opts Options,
	downloader Downloader,
	automation Automation,
	notifier Notifier,
	saved SavedServices,
	tel telemetry.API,
) *Driver {
	assert.NotNil(downloader)
	assert.NotNil(automation)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.OutputDir)

	if opts.Rounds < 0 {
		opts.Rounds = 0
	}

	return &Driver{
		opts:       opts,
		downloader: downloader,
		automation: automation,
		notifier:   notifier,
		saved:      saved,
		tel:        telemetry.NewScopedAPI("schedule", tel),
	}
}

// Result is what a daily run did.
type Result struct {
	Day        time.Time
	ReportPath string
	ManualPath string
	// Rounds holds every automated round that ran, the first run included.
	Rounds []automation.Round
}

// Entered is the number of clients entered over every round.
func (r Result) Entered() int {
	n := 0
	for _, round := range r.Rounds {
		n += round.Summary.Entered()
	}
	return n
}

// Remaining is the number of clients left after the last round.
func (r Result) Remaining() int {
	if len(r.Rounds) == 0 {
		return 0
	}
	return r.Rounds[len(r.Rounds)-1].Remaining
}

// EnsureReport returns the path of the day's report, downloading it when it is not already in
// the output directory.
func (d *Driver) EnsureReport(ctx context.Context, day time.Time) (string, error) {
	path := filepath.Join(d.opts.OutputDir, report.ReportFileName(day))
	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	d.tel.ReportDebug(report_download, "downloading report", day.Format(report.DateLayout))
	downloaded, err := d.downloader.Download(ctx, day, d.opts.OutputDir)
	if err != nil {
		d.tel.ReportBroken(report_download, err)
		return "", fmt.Errorf("download report: %w", err)
	}
	_, err = os.Stat(downloaded)
	if err != nil {
		return "", fmt.Errorf("downloaded report cannot be found: %w", err)
	}
	return downloaded, nil
}

// Run performs the daily routine for a day and emails the result when a notifier is set.
func (d *Driver) Run(ctx context.Context, day time.Time) (Result, error) {
	ctx, span := tracer.Start(ctx, "schedule:Run")
	defer span.End()
	span.SetAttributes(attribute.String("day", day.Format(report.DateLayout)))

	result, err := d.run(ctx, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run stopped early")
	}
	d.notify(ctx, result, err)
	return result, err
}

func (d *Driver) run(ctx context.Context, day time.Time) (Result, error) {
	result := Result{Day: day}

	reportPath, err := d.EnsureReport(ctx, day)
	if err != nil {
		return result, err
	}
	result.ReportPath = reportPath

	result.ManualPath, err = d.automation.WriteManual(reportPath)
	if err != nil {
		d.tel.ReportBroken(report_manual, err)
		return result, fmt.Errorf("write manual sheet: %w", err)
	}

	if !d.opts.SkipFirstRun {
		round, err := d.automation.Automate(ctx, reportPath)
		if errors.Is(err, batch.ErrEmptyInput) {
			d.tel.ReportDebug(report_round, "no clients on", day.Format(report.DateLayout))
			return result, nil
		}
		result.Rounds = append(result.Rounds, round)
		if err != nil {
			return result, err
		}
	}

	failurePath := d.automation.FailurePath(day)
	_, err = os.Stat(failurePath)
	if err != nil {
		return result, fmt.Errorf("failure sheet cannot be found: %w", err)
	}

	for i := 0; i < d.opts.Rounds; i++ {
		if n := len(result.Rounds); n > 0 && result.Rounds[n-1].Remaining == 0 {
			break
		}
		d.tel.ReportDebug(report_round, "automating failed entries", "rounds left", d.opts.Rounds-1-i)

		round, err := d.automation.Automate(ctx, failurePath)
		if errors.Is(err, batch.ErrEmptyInput) {
			break
		}
		result.Rounds = append(result.Rounds, round)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (d *Driver) notify(ctx context.Context, result Result, runErr error) {
	if d.notifier == nil {
		return
	}

	var details strings.Builder
	if n := len(result.Rounds); n > 0 {
		result.Rounds[n-1].Summary.Render(&details)
	}
	failureSheet := ""
	if n := len(result.Rounds); n > 0 {
		failureSheet = result.Rounds[n-1].FailurePath
	}

	err := d.notifier.Send(ctx, notify.RunReport{
		Location:     d.opts.Location,
		Day:          result.Day,
		Entered:      result.Entered(),
		Remaining:    result.Remaining(),
		Details:      details.String(),
		Saved:        d.savedServices(ctx, result.Day),
		FailureSheet: failureSheet,
		Err:          runErr,
	})
	if err != nil && !errors.Is(err, notify.ErrDisabled) {
		d.tel.ReportWarning(report_notify, err)
	}
}

// savedServices totals what the ledger holds for a day, nil when there is no ledger or it
// cannot be read.
func (d *Driver) savedServices(ctx context.Context, day time.Time) outreach.ServiceSet {
	if d.saved == nil {
		return nil
	}
	lines, err := d.saved.ForDate(ctx, report.ServiceDate(day))
	if err != nil {
		d.tel.ReportWarning(report_notify, "failed to read ledger", err)
		return nil
	}
	counts := map[outreach.ServiceCode]int{}
	for _, saved := range lines {
		counts[saved.Line.Code] += saved.Line.Count
	}
	return outreach.NewServiceSet(counts)
}

// Daily runs the routine for the previous day every time spec fires, until ctx is done.
func (d *Driver) Daily(ctx context.Context, cron chrono.CronAPI, clock chrono.API, spec string) error {
	assert.NotNil(cron)
	assert.NotNil(clock)

	runs := make(chan struct{}, 1)
	err := cron.Cron(spec, func() {
		select {
		case runs <- struct{}{}:
		default:
			// the previous day is still being entered
			d.tel.ReportWarning(report_cron, "skipping run, the previous one has not finished")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-runs:
			day := chrono.Yesterday(clock)
			result, err := d.Run(ctx, day)
			if err != nil {
				d.tel.ReportBroken(report_cron, day.Format(report.DateLayout), err)
				continue
			}
			d.tel.ReportDebug(report_cron, "finished", day.Format(report.DateLayout), result.Entered(), result.Remaining())
		}
	}
}
