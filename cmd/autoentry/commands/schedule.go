package commands

import (
	"errors"
	"log/slog"

	"hmis-autoentry/internal/application/schedule"
	"hmis-autoentry/internal/components/chrono"
	"hmis-autoentry/internal/components/serviceutil"
	"hmis-autoentry/internal/notify"

	"github.com/spf13/cobra"
)

var (
	scheduleDate         *string
	scheduleLocation     *string
	scheduleSkipFirstRun *bool
	scheduleRounds       *int
	scheduleCron         *string
)

func init() {
	scheduleDate = scheduleCmd.Flags().StringP("date", "d", "", "The MM-DD-YYYY day to enter, yesterday by default.")
	scheduleLocation = scheduleCmd.Flags().StringP("location", "l", "ORL", "The outreach location, ORL or SFD.")
	scheduleSkipFirstRun = scheduleCmd.Flags().Bool("skip-first-run", false, "Only retry the clients already on the failure sheet.")
	scheduleRounds = scheduleCmd.Flags().Int("rounds", 0, "Number of retries on the failure sheet, settings or 3 when unset.")
	scheduleCron = scheduleCmd.Flags().String("cron", "", "Keep running and enter the previous day on this cron schedule.")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [-d MM-DD-YYYY] [-l ORL|SFD] [--skip-first-run] [--rounds N] [--cron SPEC]",
	Short: "Downloads a day's report, enters it into HMIS and retries the clients that failed.",
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		loc := parseLocation(*scheduleLocation)
		clock := newClock(settings)
		ctx := cmd.Context()
		defer setupTelemetry(ctx, settings)()

		store, closeLedger := openLedger(ctx, settings)
		defer closeLedger()
		automator := newAutomator(settings, loc, store)

		opts := scheduleOptions(settings, loc)
		opts.SkipFirstRun = *scheduleSkipFirstRun
		if *scheduleRounds > 0 {
			opts.Rounds = *scheduleRounds
		}

		var notifier schedule.Notifier
		if settings.Email.Enabled() {
			notifier = notify.NewMailer(settings.Email, tel)
		}
		driver := schedule.NewDriver(opts, saltDownloader{settings: settings, loc: loc}, automator, notifier, store, tel)

		spec := *scheduleCron
		if spec == "" {
			spec = settings.Schedule.Cron
		}
		if spec != "" && *scheduleDate == "" {
			cron := chrono.NewStandardCron(tel, clock)
			defer func() { <-cron.Stop() }()

			slog.Info("waiting for schedule", "cron", spec, "location", loc)
			err := driver.Daily(ctx, cron, clock, spec)
			if err != nil && !errors.Is(err, ctx.Err()) {
				serviceutil.Fatal("failed to schedule", err)
			}
			return
		}

		day := parseDay(*scheduleDate, clock)
		result, err := driver.Run(ctx, day)
		if err != nil && !errors.Is(err, ctx.Err()) {
			serviceutil.Fatal("scheduled automation stopped early", err)
		}
		slog.Info(
			"finished scheduled automation",
			"day", day.Format("01-02-2006"),
			"rounds", len(result.Rounds),
			"entered", result.Entered(),
			"remaining", result.Remaining(),
		)
	},
}
