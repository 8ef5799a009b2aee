// Package hmis drives the ClientTrack HMIS portal: logging in, locating a client, enrolling
// them through the intake workflow and recording the services they received.
//
// Every operation acts on whatever client is currently loaded in the session, a Driver must
// only ever be used by one goroutine.
package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/outreach"
	"time"
)

const DefaultLoginURL = "https://clienttrack.eccovia.com/login/HSNCFL"

// RetryPolicy decides what happens to already saved service lines when service entry resumes
// after enrolling a client.
type RetryPolicy string

const (
	// RETRY_DEDUP skips lines already saved for the client and date.
	RETRY_DEDUP RetryPolicy = "dedup"
	// RETRY_RESUBMIT restarts from the first line, saved lines are entered again.
	RETRY_RESUBMIT RetryPolicy = "resubmit"
)

func ParseRetryPolicy(s string) (RetryPolicy, error) {
	switch RetryPolicy(s) {
	case "", RETRY_DEDUP:
		return RETRY_DEDUP, nil
	case RETRY_RESUBMIT:
		return RETRY_RESUBMIT, nil
	}
	return "", fmt.Errorf("unknown retry policy %q, expected dedup or resubmit", s)
}

// Ledger remembers which service lines have been saved, across batch rounds.
type Ledger interface {
	Saved(ctx context.Context, client string, code outreach.ServiceCode, date string) (bool, error)
	Record(ctx context.Context, client string, line outreach.ServiceLine, date string) error
}

type nopLedger struct{}

func (nopLedger) Saved(context.Context, string, outreach.ServiceCode, string) (bool, error) {
	return false, nil
}

func (nopLedger) Record(context.Context, string, outreach.ServiceLine, string) error {
	return nil
}

// Options configures a Driver.
type Options struct {
	LoginURL string
	Username string
	Password string
	Location outreach.Location
	Policy   RetryPolicy

	// Wait bounds waits on controls within a page.
	Wait browser.Waiter
	// LongWait bounds waits on login and sidebar navigation.
	LongWait browser.Waiter
}

// DefaultOptions returns options with the waits used in production.
func DefaultOptions() Options {
	return Options{
		LoginURL: DefaultLoginURL,
		Policy:   RETRY_DEDUP,
		Wait: browser.Waiter{
			Timeout: 3 * time.Second,
			Poll:    100 * time.Millisecond,
			Settle:  time.Second,
		},
		LongWait: browser.Waiter{
			Timeout: 30 * time.Second,
			Poll:    250 * time.Millisecond,
			Settle:  time.Second,
		},
	}
}

// Driver drives a single HMIS session.
type Driver struct {
	session  browser.Session
	opts     Options
	wait     browser.Waiter
	longWait browser.Waiter
	ledger   Ledger

	// the id suffix of the next confirmation dialog iframe
	dialogCounter int

	tel telemetry.API
}

// NewDriver creates a Driver, ledger may be nil when no saved-service bookkeeping is wanted.
func NewDriver(session browser.Session, opts Options, ledger Ledger, tel telemetry.API) *Driver {
	assert.NotNil(session)
	assert.NotNil(tel)
	assert.NotEmptyStr(string(opts.Location))

	if opts.LoginURL == "" {
		opts.LoginURL = DefaultLoginURL
	}
	if opts.Policy == "" {
		opts.Policy = RETRY_DEDUP
	}
	if ledger == nil {
		ledger = nopLedger{}
	}

	return &Driver{
		session:       session,
		opts:          opts,
		wait:          opts.Wait,
		longWait:      opts.LongWait,
		ledger:        ledger,
		dialogCounter: 1,
		tel:           telemetry.NewScopedAPI("hmis", tel),
	}
}

// projectOption is the program enrollment option of the driver's location.
func (d *Driver) projectOption() string {
	if d.opts.Location == outreach.LOCATION_ORLANDO {
		return "1217"
	}
	return "1157"
}

// countyOption is the enrollment CoC county of the driver's location.
func (d *Driver) countyOption() string {
	if d.opts.Location == outreach.LOCATION_ORLANDO {
		return optionOrangeCounty
	}
	return optionSeminoleCounty
}

// serviceOptions maps service codes to their option values in the add service form.
var serviceOptions = map[outreach.ServiceCode]string{
	outreach.SERVICE_BIBLE_STUDY:      "690",
	outreach.SERVICE_SHOWER:           "289",
	outreach.SERVICE_LAUNDRY:          "529",
	outreach.SERVICE_LAUNDRY_PRODUCTS: "605",
	outreach.SERVICE_BEDDING:          "538",
	outreach.SERVICE_CLOTHING:         "526",
	outreach.SERVICE_GROOMING:         "530",
	outreach.SERVICE_FOOD:             "359",
	outreach.SERVICE_CASE_MANAGEMENT:  "372",
}
