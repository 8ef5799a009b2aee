// Package saltapp downloads the daily "report by client" export from the SALT outreach web app.
package saltapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("hmis-autoentry/saltapp")

const (
	report_login     = "client.login"
	report_dashboard = "client.dashboard"
	report_export    = "client.export"
)

const (
	ORLANDO_URL = "https://saltoutreachapp.com"
	SANFORD_URL = "https://sanford.saltoutreachapp.com"
)

// BaseURL returns the web app of a location, each site runs its own instance.
func BaseURL(loc outreach.Location) string {
	if loc == outreach.LOCATION_SANFORD {
		return SANFORD_URL
	}
	return ORLANDO_URL
}

var (
	ErrLoginFailed = errors.New("salt: login failed")
	// ErrGoogleLogin is returned for accounts that only sign in through Google, which cannot
	// be automated without a browser.
	ErrGoogleLogin = errors.New("salt: google sign in is not supported, use a SALT username and password")
	ErrNoExport    = errors.New("salt: dashboard has no export form")
)

type Options struct {
	BaseURL string
	// RateLimit is the maximum number of requests per second, 2 when unset.
	RateLimit rate.Limit
	Timeout   time.Duration
}

type Client struct {
	baseURL *url.URL
	http    *resty.Client
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseURL)

	tel = telemetry.NewScopedAPI("saltapp", tel)

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/"))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient.SetTimeout(timeout)

	limit := opts.RateLimit
	if limit == 0 {
		limit = 2
	}
	assert.Positive("rate limit", limit)
	// a burst of 2 only smooths out the login round trip
	rateLimiter := rate.NewLimiter(limit, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		tel:     tel,
	}, nil
}

func (c *Client) page(ctx context.Context, path string, query map[string]string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("%s: %s", path, res.Status())
	}
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

// Login signs in with a SALT account.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	loginError := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		c.tel.ReportBroken(report_login, err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	doc, err := c.page(ctx, "/login", nil)
	if err != nil {
		return loginError(fmt.Errorf("login page: %w", err))
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(`input[type="password"]`).Length() > 0
	}).First()
	if form.Length() == 0 {
		if doc.Find(`a[href*="google"]`).Length() > 0 {
			return ErrGoogleLogin
		}
		return loginError(fmt.Errorf("could not find the login form"))
	}

	data := formValues(form)
	data[form.Find(`input[type="email"]`).AttrOr("name", "email")] = username
	data[form.Find(`input[type="password"]`).AttrOr("name", "password")] = password

	action := c.resolve(form.AttrOr("action", "/login"))
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(data).
		Post(action)
	if err != nil {
		return loginError(fmt.Errorf("login request: %w", err))
	}
	if res.IsError() {
		return loginError(fmt.Errorf("login request: %s", res.Status()))
	}

	doc, err = c.page(ctx, "/dashboard", nil)
	if err != nil {
		return loginError(fmt.Errorf("dashboard: %w", err))
	}
	if doc.Find("#navbar").Length() == 0 {
		return loginError(fmt.Errorf("dashboard did not load, check the SALT credentials"))
	}
	return nil
}

// formValues returns the values of every named input of a form.
func formValues(form *goquery.Selection) map[string]string {
	data := map[string]string{}
	form.Find("input[name]").Each(func(_ int, input *goquery.Selection) {
		name, _ := input.Attr("name")
		data[name] = input.AttrOr("value", "")
	})
	return data
}

// resolve turns a form action into a URL the client may follow.
func (c *Client) resolve(action string) string {
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return c.baseURL.ResolveReference(ref).String()
}

// DailyReport downloads the report by client export of a day.
func (c *Client) DailyReport(ctx context.Context, day time.Time) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:DailyReport")
	defer span.End()

	date := day.Format("2006-01-02")
	span.SetAttributes(attribute.String("date", date))

	doc, err := c.page(ctx, "/dashboard", map[string]string{"formdate": date})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load dashboard")
		c.tel.ReportBroken(report_dashboard, date, err)
		return nil, err
	}

	form := doc.Find(`form[action$="/dashboard/export"]`).First()
	if form.Length() == 0 {
		span.SetStatus(codes.Error, ErrNoExport.Error())
		c.tel.ReportWarning(report_dashboard, date, ErrNoExport)
		return nil, ErrNoExport
	}
	data := formValues(form)
	if _, ok := data["formdate"]; !ok {
		data["formdate"] = date
	}
	action := c.resolve(form.AttrOr("action", ""))
	span.AddEvent("export form", trace.WithAttributes(
		attribute.String("action", action),
		attribute.Int("fields", len(data)),
	))

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(data).
		Post(action)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to export")
		c.tel.ReportBroken(report_export, date, err)
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("export: %s", res.Status())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// xlsx files are zip archives
	body := res.Body()
	if !bytes.HasPrefix(body, []byte("PK")) {
		err := fmt.Errorf("export of %s is not a spreadsheet (%s)", date, res.Header().Get("content-type"))
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportWarning(report_export, err)
		return nil, err
	}
	return body, nil
}

// Download saves the report by client of a day into dir and returns its path.
func (c *Client) Download(ctx context.Context, day time.Time, dir string) (string, error) {
	body, err := c.DailyReport(ctx, day)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, report.ReportFileName(day))
	err = os.WriteFile(path, body, 0o644)
	if err != nil {
		return "", err
	}
	c.tel.ReportDebug(report_export, "saved", path)
	return path, nil
}
