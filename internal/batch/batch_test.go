package batch

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/hmis"
	"hmis-autoentry/internal/outreach"
	"hmis-autoentry/internal/report"

	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	calls      []string
	missing    map[string]bool
	broken     map[string]bool
	engagement error
	requests   []hmis.ServiceRequest
	onEnter    func()
}

func (f *fakeDriver) LocateByID(ctx context.Context, id, first, last string) error {
	f.calls = append(f.calls, "id "+id)
	if f.missing[id] {
		return &hmis.Failure{Kind: hmis.KIND_NO_MATCH, Op: hmis.OP_LOCATE_BY_ID, Err: errors.New("different client")}
	}
	return nil
}

func (f *fakeDriver) LocateByBirthdate(ctx context.Context, birthdate, first, last string) error {
	f.calls = append(f.calls, "dob "+birthdate)
	if f.missing[birthdate] {
		return &hmis.Failure{Kind: hmis.KIND_NOT_FOUND, Op: hmis.OP_LOCATE_BY_BIRTHDAY, Err: errors.New("no results")}
	}
	return nil
}

func (f *fakeDriver) EnterServices(ctx context.Context, req hmis.ServiceRequest) error {
	f.calls = append(f.calls, "enter "+req.Client.Key())
	f.requests = append(f.requests, req)
	if f.onEnter != nil {
		f.onEnter()
	}
	if f.broken[req.Client.Key()] {
		return &hmis.Failure{Kind: hmis.KIND_PARTIAL_SUCCESS, Op: hmis.OP_ENTER_SERVICES, Err: errors.New("save failed")}
	}
	return nil
}

func (f *fakeDriver) UpdateDateOfEngagement(ctx context.Context, prefs outreach.EnrollmentPreference, serviceDate string) error {
	f.calls = append(f.calls, "engagement "+serviceDate)
	return f.engagement
}

// memCheckpoint records removed rows.
type memCheckpoint struct {
	removed []int
	err     error
}

func (m *memCheckpoint) Remove(row int) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, row)
	return nil
}

var opts = Options{ServiceDate: "01012024", Preferences: outreach.EnrollmentPreference{"Street Outreach"}}

func entry(row int, q outreach.ClientQuery) report.Entry {
	return report.Entry{
		Row:      row,
		Name:     q.LastName + " " + q.FirstName,
		Query:    q,
		Services: outreach.NewServiceSet(map[outreach.ServiceCode]int{outreach.SERVICE_SHOWER: 1}),
	}
}

func TestRunEmptyInput(t *testing.T) {
	driver := &fakeDriver{}
	r := NewRunner(driver, &memCheckpoint{}, opts, &telemetry.Recorder{})

	_, err := r.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Empty(t, driver.calls)
}

func TestRunStrategies(t *testing.T) {
	driver := &fakeDriver{
		missing: map[string]bool{"99999": true},
		broken:  map[string]bool{"id:55555": true},
	}
	checkpoint := &memCheckpoint{}
	rec := &telemetry.Recorder{}
	r := NewRunner(driver, checkpoint, opts, rec)

	summary, err := r.Run(context.Background(), []report.Entry{
		entry(0, outreach.ClientQuery{ID: "12345", Birthdate: "01011990", FirstName: "John", LastName: "Smith"}),
		entry(1, outreach.ClientQuery{Birthdate: "02141988", FirstName: "Maria", LastName: "Garcia"}),
		entry(2, outreach.ClientQuery{ID: "99999", FirstName: "Peter", LastName: "Parker"}),
		entry(3, outreach.ClientQuery{FirstName: "Jane", LastName: "Doe"}),
		entry(4, outreach.ClientQuery{LastName: "Cher"}),
		entry(5, outreach.ClientQuery{ID: "55555", FirstName: "Ana", LastName: "Lopez"}),
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"id 12345", "enter id:12345",
		"dob 02141988", "enter dob:02141988:garcia:maria",
		"id 99999",
		"id 55555", "enter id:55555",
	}, driver.calls)
	require.Equal(t, []int{0, 1}, checkpoint.removed)

	require.Equal(t, 2, summary.Entered())
	require.Equal(t, 4, summary.Failed())
	require.Equal(t, map[hmis.Outcome]int{
		hmis.OUTCOME_SERVICE_SAVED:  2,
		hmis.OUTCOME_NOT_FOUND:      3,
		hmis.OUTCOME_SERVICE_FAILED: 1,
	}, summary.Outcomes())
	require.ErrorIs(t, summary.Results[3].Err, ErrNameSearchUnsupported)
	require.ErrorIs(t, summary.Results[4].Err, ErrInsufficientData)
	require.Equal(t, hmis.KIND_NO_MATCH, hmis.KindOf(summary.Results[2].Err))
	require.True(t, rec.Has("warning", report_client))

	require.Equal(t, "01012024", driver.requests[0].ServiceDate)
	require.Equal(t, opts.Preferences, driver.requests[0].Preferences)

	var out bytes.Buffer
	summary.Render(&out)
	require.Contains(t, out.String(), "Smith John")
	require.Contains(t, out.String(), "service_saved")
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "Report_by_client_01-01-2024.xlsx")
	err := report.WriteSheet(source, &report.Sheet{
		Name:   "Report",
		Header: []string{report.COLUMN_HMIS_ID, report.COLUMN_CLIENT_NAME, report.COLUMN_DOB, report.COLUMN_SERVICE, report.COLUMN_ITEMS},
		Rows: [][]string{
			{"12345", "Smith John", "01011990", "Shower (01-01-2024) : 1\nLaundry (01-01-2024) : 1", ""},
			{"", "Doe Jane", "", "Shower (01-01-2024) : 1", ""},
		},
	})
	require.NoError(t, err)

	sheet, err := report.ReadSheet(source)
	require.NoError(t, err)
	entries, err := report.Transform(sheet, report.ITEMS_LEGACY)
	require.NoError(t, err)

	failures, err := report.NewFailureSet(filepath.Join(dir, "ORL_Failed_entries_01-01-2024.xlsx"), sheet)
	require.NoError(t, err)

	driver := &fakeDriver{}
	r := NewRunner(driver, failures, opts, &telemetry.Recorder{})
	summary, err := r.Run(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Entered())

	require.Len(t, driver.requests, 1)
	require.Equal(t, map[outreach.ServiceCode]int{
		outreach.SERVICE_SHOWER:   1,
		outreach.SERVICE_LAUNDRY:  2,
		outreach.SERVICE_GROOMING: 3,
	}, driver.requests[0].Lines.Counts())
	require.Equal(t, outreach.SEARCH_BY_ID, summary.Results[0].Strategy)

	remaining, err := report.ReadSheet(failures.Path())
	require.NoError(t, err)
	require.Len(t, remaining.Rows, 1)
	require.Equal(t, "Doe Jane", remaining.Cell(remaining.Rows[0], report.COLUMN_CLIENT_NAME))
}

func TestRunStopsBetweenClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	driver := &fakeDriver{}
	// the cancellation arrives while the first client is being entered
	driver.onEnter = cancel
	checkpoint := &memCheckpoint{}
	r := NewRunner(driver, checkpoint, opts, &telemetry.Recorder{})

	summary, err := r.Run(ctx, []report.Entry{
		entry(0, outreach.ClientQuery{ID: "1", FirstName: "John", LastName: "Smith"}),
		entry(1, outreach.ClientQuery{ID: "2", FirstName: "Jane", LastName: "Doe"}),
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, summary.Results, 1)
	require.NoError(t, summary.Results[0].Err)
	require.Equal(t, []int{0}, checkpoint.removed)
}

func TestRunCheckpointFailure(t *testing.T) {
	broken := errors.New("disk full")
	rec := &telemetry.Recorder{}
	r := NewRunner(&fakeDriver{}, &memCheckpoint{err: broken}, opts, rec)

	_, err := r.Run(context.Background(), []report.Entry{
		entry(0, outreach.ClientQuery{ID: "1", FirstName: "John", LastName: "Smith"}),
		entry(1, outreach.ClientQuery{ID: "2", FirstName: "Jane", LastName: "Doe"}),
	})
	require.ErrorIs(t, err, broken)
	require.True(t, rec.Has("broken", report_client))
}

func TestRunUpdatesEngagement(t *testing.T) {
	driver := &fakeDriver{engagement: errors.New("no assessment")}
	withEngagement := opts
	withEngagement.UpdateEngagement = true
	rec := &telemetry.Recorder{}
	r := NewRunner(driver, &memCheckpoint{}, withEngagement, rec)

	summary, err := r.Run(context.Background(), []report.Entry{
		entry(0, outreach.ClientQuery{ID: "1", FirstName: "John", LastName: "Smith"}),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"id 1", "engagement 01012024", "enter id:1"}, driver.calls)
	// a failed engagement update does not fail the client
	require.Equal(t, 1, summary.Entered())
	require.True(t, rec.Has("warning", report_engagement))
}
