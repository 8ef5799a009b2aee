package hmis

import (
	"context"
	"testing"

	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/outreach"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const serviceDate = "03142024"

func serviceRequest(counts map[outreach.ServiceCode]int) ServiceRequest {
	return ServiceRequest{
		Client:      outreach.ClientQuery{ID: "1234567", FirstName: "Maria", LastName: "Garcia"},
		Preferences: testPrefs,
		ServiceDate: serviceDate,
		Lines:       outreach.NewServiceSet(counts),
	}
}

func TestEnterServices(t *testing.T) {
	p := newPortal(true)
	ledger := memLedger{}
	d, _ := newTestDriver(p, testOptions(), ledger)

	err := d.EnterServices(context.Background(), serviceRequest(map[outreach.ServiceCode]int{
		outreach.SERVICE_GROOMING: 3,
		outreach.SERVICE_SHOWER:   1,
		outreach.SERVICE_LAUNDRY:  2,
	}))
	require.NoError(t, err)
	require.Equal(t, OUTCOME_SERVICE_SAVED, OutcomeOf(OP_ENTER_SERVICES, err))

	expected := []savedLine{
		{Enrollment: "E2", Service: "289", Units: "1", Date: serviceDate},
		{Enrollment: "E2", Service: "529", Units: "2", Date: serviceDate},
		{Enrollment: "E2", Service: "530", Units: "3", Date: serviceDate},
	}
	if diff := cmp.Diff(expected, p.saved); diff != "" {
		t.Fatalf("saved lines (-want +got):\n%s", diff)
	}
	require.Equal(t, 0, p.finishClicks)
	require.Len(t, ledger, 3)
	require.Equal(t, 2, ledger[ledgerKey("id:1234567", outreach.SERVICE_LAUNDRY, serviceDate)])
}

func TestEnterServicesNothingToEnter(t *testing.T) {
	p := newPortal(true)
	d, _ := newTestDriver(p, testOptions(), nil)

	require.NoError(t, d.EnterServices(context.Background(), serviceRequest(nil)))
	require.Empty(t, p.s.Trace)
}

func TestEnterServicesEnrollsOnce(t *testing.T) {
	p := newPortal(false)
	p.enrollOnFinish = true
	d, rec := newTestDriver(p, testOptions(), memLedger{})

	err := d.EnterServices(context.Background(), serviceRequest(map[outreach.ServiceCode]int{
		outreach.SERVICE_SHOWER: 1,
		outreach.SERVICE_FOOD:   1,
	}))
	require.NoError(t, err)
	require.Equal(t, 1, p.finishClicks)
	require.Len(t, p.saved, 2)
	require.Equal(t, "359", p.saved[1].Service)
	require.True(t, rec.Has("debug", report_services_enroll))
}

func TestEnterServicesEnrollmentFails(t *testing.T) {
	p := newPortal(false)
	p.tab.Remove(buttonFinish)
	d, rec := newTestDriver(p, testOptions(), nil)

	err := d.EnterServices(context.Background(), serviceRequest(map[outreach.ServiceCode]int{
		outreach.SERVICE_SHOWER: 1,
	}))
	require.Error(t, err)
	require.Equal(t, KIND_WORKFLOW_ABORTED, KindOf(err))
	require.Equal(t, OUTCOME_ENROLLMENT_FAILED, OutcomeOf(OP_ENTER_SERVICES, err))

	var f *Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, OP_ENROLL, f.Op)
	require.Equal(t, STAGE_FINISH, f.Step)
	require.Empty(t, p.saved)
	require.True(t, rec.Has("warning", report_intake_stage))

	// the workflow was cancelled through the first dialog
	require.Equal(t, 1, p.s.Doc("Frame1").Get(buttonDialogYes).Clicks)
	require.Equal(t, browser.Top(), p.s.Focus())

	// the next dialog gets the next frame id
	require.NoError(t, d.CancelIntake(context.Background()))
	require.Equal(t, 1, p.s.Doc("Frame2").Get(buttonDialogYes).Clicks)
}

func TestEnterServicesStillNotEnrolled(t *testing.T) {
	p := newPortal(false)
	d, _ := newTestDriver(p, testOptions(), nil)

	err := d.EnterServices(context.Background(), serviceRequest(map[outreach.ServiceCode]int{
		outreach.SERVICE_SHOWER: 1,
	}))
	require.Equal(t, KIND_NOT_FOUND, KindOf(err))
	require.Equal(t, OUTCOME_SERVICE_FAILED, OutcomeOf(OP_ENTER_SERVICES, err))
	require.Equal(t, 1, p.finishClicks)

	var f *Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, "Shower: enrollment", f.Step)
}

func TestEnterServicesPartialSuccess(t *testing.T) {
	p := newPortal(true)
	kept := []browser.Option{}
	for _, o := range p.service.Options {
		if o.Value != serviceOptions[outreach.SERVICE_LAUNDRY] {
			kept = append(kept, o)
		}
	}
	p.service.Options = kept
	d, _ := newTestDriver(p, testOptions(), nil)

	err := d.EnterServices(context.Background(), serviceRequest(map[outreach.ServiceCode]int{
		outreach.SERVICE_SHOWER:  1,
		outreach.SERVICE_LAUNDRY: 2,
	}))
	require.Equal(t, KIND_PARTIAL_SUCCESS, KindOf(err))
	require.Len(t, p.saved, 1)
	require.ErrorIs(t, err, browser.ErrNotFound)
}

func TestEnterServicesRetryPolicy(t *testing.T) {
	// the enrollment disappears after the first save, so the client is enrolled between the
	// first and second line
	cases := []struct {
		policy   RetryPolicy
		expected []string
	}{
		{policy: RETRY_DEDUP, expected: []string{"289", "529"}},
		{policy: RETRY_RESUBMIT, expected: []string{"289", "289", "529"}},
	}
	for _, c := range cases {
		t.Run(string(c.policy), func(t *testing.T) {
			p := newPortal(true)
			p.enrollOnFinish = true
			removed := false
			p.onSave = func() {
				if !removed {
					removed = true
					p.removeOutreachEnrollment()
				}
			}
			opts := testOptions()
			opts.Policy = c.policy
			d, _ := newTestDriver(p, opts, memLedger{})

			err := d.EnterServices(context.Background(), serviceRequest(map[outreach.ServiceCode]int{
				outreach.SERVICE_SHOWER:  1,
				outreach.SERVICE_LAUNDRY: 2,
			}))
			require.NoError(t, err)
			require.Equal(t, 1, p.finishClicks)

			services := []string{}
			for _, line := range p.saved {
				services = append(services, line.Service)
			}
			require.Equal(t, c.expected, services)
		})
	}
}

func TestEnterServicesSkipsSavedLines(t *testing.T) {
	p := newPortal(true)
	ledger := memLedger{ledgerKey("id:1234567", outreach.SERVICE_SHOWER, serviceDate): 1}
	d, _ := newTestDriver(p, testOptions(), ledger)

	err := d.EnterServices(context.Background(), serviceRequest(map[outreach.ServiceCode]int{
		outreach.SERVICE_SHOWER:  1,
		outreach.SERVICE_LAUNDRY: 2,
	}))
	require.NoError(t, err)
	require.Len(t, p.saved, 1)
	require.Equal(t, "529", p.saved[0].Service)
}
