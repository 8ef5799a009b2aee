package automation

import (
	"context"

	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/hmis"
)

type hmisSession struct {
	*hmis.Driver
	browser *browser.RodSession
}

func (s hmisSession) Close() error {
	return s.browser.Close()
}

// ChromeConnector launches Chrome and signs into HMIS for every round.
func ChromeConnector(browserOpts browser.Options, hmisOpts hmis.Options, ledger hmis.Ledger, tel telemetry.API) Connector {
	return func(ctx context.Context) (Session, error) {
		rodSession, err := browser.Launch(ctx, browserOpts, tel)
		if err != nil {
			return nil, err
		}
		driver := hmis.NewDriver(rodSession, hmisOpts, ledger, tel)
		err = driver.Login(ctx)
		if err != nil {
			_ = rodSession.Close()
			return nil, err
		}
		return hmisSession{Driver: driver, browser: rodSession}, nil
	}
}
