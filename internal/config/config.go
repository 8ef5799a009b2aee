// Package config loads settings.json5, the single place credentials and paths come from.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/components/configutil"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/hmis"
	"hmis-autoentry/internal/notify"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"
	"hmis-autoentry/internal/saltapp"
)

const (
	FileName = "settings.json5"
	// LedgerFileName is the ledger kept in the output directory when ledger_path is unset.
	LedgerFileName = "ledger.db"
	DefaultRounds  = 3
)

var ErrIncomplete = errors.New("settings are incomplete")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type HMISConfig struct {
	Credentials
	LoginURL string `json:"login_url"`
}

type WaitConfig struct {
	TimeoutSeconds float64 `json:"timeout_seconds"`
	PollMillis     int     `json:"poll_millis"`
	SettleMillis   int     `json:"settle_millis"`
}

func (w WaitConfig) apply(out *browser.Waiter) {
	if w.TimeoutSeconds > 0 {
		out.Timeout = time.Duration(w.TimeoutSeconds * float64(time.Second))
	}
	if w.PollMillis > 0 {
		out.Poll = time.Duration(w.PollMillis) * time.Millisecond
	}
	if w.SettleMillis > 0 {
		out.Settle = time.Duration(w.SettleMillis) * time.Millisecond
	}
}

type AutomationConfig struct {
	RetryPolicy      string `json:"retry_policy"`
	ItemTable        string `json:"item_table"`
	UpdateEngagement bool   `json:"update_engagement"`
	// EnrollmentPreferences maps a location code to program names, most preferred first.
	EnrollmentPreferences map[string][]string `json:"enrollment_preferences"`
	Wait                  WaitConfig          `json:"wait"`
	LongWait              WaitConfig          `json:"long_wait"`
}

type ScheduleConfig struct {
	Rounds int    `json:"rounds"`
	Cron   string `json:"cron"`
	// Timezone is the IANA zone "yesterday" is computed in.
	Timezone string `json:"timezone"`
}

type Settings struct {
	OutputPath string           `json:"output_path"`
	Salt       Credentials      `json:"salt"`
	Hmis       HMISConfig       `json:"hmis"`
	Browser    browser.Options  `json:"browser"`
	Automation AutomationConfig `json:"automation"`
	LedgerPath string           `json:"ledger_path"`
	Schedule   ScheduleConfig   `json:"schedule"`
	Email      notify.Config    `json:"email"`
	Telemetry  telemetry.Config `json:"telemetry"`
}

var defaultPreferences = []string{"Street Outreach", "Services Only"}

// Load reads the settings file along with its settings.local.json5 override. A bare file name
// is searched for from the working directory up to the filesystem root.
func Load(path string) (Settings, error) {
	read := configutil.ReadConfig[Settings]
	if filepath.Base(path) == path {
		read = configutil.ReadRecursively[Settings]
	}
	settings, err := read(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read %s: %w", path, err)
	}
	return settings, nil
}

// Validate fails when anything needed by every command is missing or malformed.
func (s Settings) Validate() error {
	var missing []string
	if s.OutputPath == "" {
		missing = append(missing, "output_path")
	}
	if s.Hmis.Username == "" || s.Hmis.Password == "" {
		missing = append(missing, "hmis credentials")
	}
	if s.Salt.Username == "" || s.Salt.Password == "" {
		missing = append(missing, "salt credentials")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	_, err := hmis.ParseRetryPolicy(s.Automation.RetryPolicy)
	if err != nil {
		return err
	}
	_, err = report.ParseItemTable(s.Automation.ItemTable)
	if err != nil {
		return err
	}
	for loc := range s.Automation.EnrollmentPreferences {
		_, err = outreach.ParseLocation(loc)
		if err != nil {
			return fmt.Errorf("enrollment_preferences: %w", err)
		}
	}
	return nil
}

// Preferences returns the enrollment preferences of a location.
func (s Settings) Preferences(loc outreach.Location) outreach.EnrollmentPreference {
	for key, prefs := range s.Automation.EnrollmentPreferences {
		if strings.EqualFold(key, string(loc)) && len(prefs) > 0 {
			return outreach.EnrollmentPreference(prefs)
		}
	}
	return outreach.EnrollmentPreference(defaultPreferences)
}

func (s Settings) HMISOptions(loc outreach.Location) hmis.Options {
	opts := hmis.DefaultOptions()
	if s.Hmis.LoginURL != "" {
		opts.LoginURL = s.Hmis.LoginURL
	}
	opts.Username = s.Hmis.Username
	opts.Password = s.Hmis.Password
	opts.Location = loc
	// Validate has already rejected unknown policies
	opts.Policy, _ = hmis.ParseRetryPolicy(s.Automation.RetryPolicy)
	s.Automation.Wait.apply(&opts.Wait)
	s.Automation.LongWait.apply(&opts.LongWait)
	return opts
}

// ItemTable is the item table reports are tallied with, Validate has already rejected unknown
// tables.
func (s Settings) ItemTable() report.ItemTable {
	table, _ := report.ParseItemTable(s.Automation.ItemTable)
	return table
}

// Rounds is the number of retries on the failure sheet.
func (s Settings) Rounds() int {
	if s.Schedule.Rounds == 0 {
		return DefaultRounds
	}
	return s.Schedule.Rounds
}

// Ledger is the path of the saved services ledger, output_path/ledger.db unless set.
func (s Settings) Ledger() string {
	if s.LedgerPath != "" {
		return s.LedgerPath
	}
	return filepath.Join(s.OutputPath, LedgerFileName)
}

func (s Settings) SaltOptions(loc outreach.Location) saltapp.Options {
	return saltapp.Options{BaseURL: saltapp.BaseURL(loc)}
}
