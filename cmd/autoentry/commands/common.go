package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"hmis-autoentry/internal/application/automation"
	"hmis-autoentry/internal/application/schedule"
	"hmis-autoentry/internal/components/chrono"
	"hmis-autoentry/internal/components/serviceutil"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/config"
	"hmis-autoentry/internal/ledger"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"
)

var tel = telemetry.SlogAPI{}

// loadSettings reads and validates the settings, any problem ends the process.
func loadSettings() config.Settings {
	settings, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read settings, see the README for the expected settings.json5", err)
	}
	err = settings.Validate()
	if err != nil {
		serviceutil.Fatal("invalid settings", err)
	}
	return settings
}

func parseLocation(s string) outreach.Location {
	loc, err := outreach.ParseLocation(s)
	if err != nil {
		serviceutil.Fatal("invalid location", err)
	}
	return loc
}

// parseDay parses a MM-DD-YYYY date, an empty date is yesterday.
func parseDay(s string, clock chrono.API) time.Time {
	if s == "" {
		return chrono.Yesterday(clock)
	}
	day, err := time.ParseInLocation(report.DateLayout, s, clock.Location())
	if err != nil {
		serviceutil.Fatal("invalid date, expected MM-DD-YYYY", err)
	}
	return day
}

func newClock(settings config.Settings) chrono.API {
	clock, err := chrono.NewStandardImpl(settings.Schedule.Timezone)
	if err != nil {
		serviceutil.Fatal("invalid timezone", err)
	}
	return clock
}

// setupTelemetry installs the otlp exporters when configured and returns their shutdown.
func setupTelemetry(ctx context.Context, settings config.Settings) func() {
	if !settings.Telemetry.Enabled() {
		return func() {}
	}
	otel, err := telemetry.Setup(ctx, "autoentry", settings.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := otel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}
}

// openLedger opens the saved services ledger, the returned close releases it.
func openLedger(ctx context.Context, settings config.Settings) (*ledger.Store, func()) {
	path := settings.Ledger()
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		serviceutil.Fatal("failed to create ledger directory", err)
	}
	store, err := ledger.Open(ctx, path)
	if err != nil {
		serviceutil.Fatal("failed to open ledger", err)
	}
	return store, func() {
		err := store.Close()
		if err != nil {
			slog.Warn("failed to close ledger", "err", err)
		}
	}
}

func automationOptions(settings config.Settings, loc outreach.Location) automation.Options {
	return automation.Options{
		Location:         loc,
		OutputDir:        settings.OutputPath,
		ItemTable:        settings.ItemTable(),
		Preferences:      settings.Preferences(loc),
		UpdateEngagement: settings.Automation.UpdateEngagement,
	}
}

func scheduleOptions(settings config.Settings, loc outreach.Location) schedule.Options {
	return schedule.Options{
		Location:  loc,
		OutputDir: settings.OutputPath,
		Rounds:    settings.Rounds(),
	}
}

// newAutomator wires an automator to Chrome, every saved service line is recorded in store.
func newAutomator(settings config.Settings, loc outreach.Location, store *ledger.Store) *automation.Automator {
	connect := automation.ChromeConnector(settings.Browser, settings.HMISOptions(loc), store, tel)
	return automation.NewAutomator(automationOptions(settings, loc), connect, tel)
}
