package commands

import (
	"context"
	"log/slog"
	"time"

	"hmis-autoentry/internal/components/serviceutil"
	"hmis-autoentry/internal/config"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/saltapp"

	"github.com/spf13/cobra"
)

var (
	downloadDate     *string
	downloadLocation *string
)

func init() {
	downloadDate = downloadCmd.Flags().StringP("date", "d", "", "The MM-DD-YYYY day to download, yesterday by default.")
	downloadLocation = downloadCmd.Flags().StringP("location", "l", "ORL", "The outreach location, ORL or SFD.")
	rootCmd.AddCommand(downloadCmd)
}

// saltDownloader signs into SALT on every download so a long running schedule never works
// with an expired session.
type saltDownloader struct {
	settings config.Settings
	loc      outreach.Location
}

func (d saltDownloader) Download(ctx context.Context, day time.Time, dir string) (string, error) {
	client, err := saltapp.NewClient(d.settings.SaltOptions(d.loc), tel)
	if err != nil {
		return "", err
	}
	err = client.Login(ctx, d.settings.Salt.Username, d.settings.Salt.Password)
	if err != nil {
		return "", err
	}
	return client.Download(ctx, day, dir)
}

var downloadCmd = &cobra.Command{
	Use:   "download [-d MM-DD-YYYY] [-l ORL|SFD]",
	Short: "Downloads the report by client of a day from the SALT web app.",
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		loc := parseLocation(*downloadLocation)
		day := parseDay(*downloadDate, newClock(settings))
		ctx := cmd.Context()
		defer setupTelemetry(ctx, settings)()

		path, err := saltDownloader{settings: settings, loc: loc}.Download(ctx, day, settings.OutputPath)
		if err != nil {
			serviceutil.Fatal("failed to download report", err)
		}
		slog.Info("downloaded report", "path", path)
	},
}
