package hmis

import (
	"context"
	"fmt"
	"time"

	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/browser/browsertest"
	"hmis-autoentry/internal/components/telemetry"
	"hmis-autoentry/internal/outreach"
)

// portal is a fake HMIS where every page of the tab iframe is rendered at once, clicks only
// matter where a test scripts them.
type portal struct {
	s   *browsertest.Session
	top *browsertest.Doc
	tab *browsertest.Doc

	enrollments *browsertest.Element
	service     *browsertest.Element
	units       *browsertest.Element
	date        *browsertest.Element
	finish      *browsertest.Element

	saved        []savedLine
	dialogs      int
	finishClicks int
	// enrollOnFinish adds the outreach enrollment once the intake workflow finishes
	enrollOnFinish bool
	onSave         func()
}

type savedLine struct {
	Enrollment string
	Service    string
	Units      string
	Date       string
}

const outreachEnrollment = "SALT Street Outreach (ORL)"

var testPrefs = outreach.EnrollmentPreference{"Street Outreach", "Services Only"}

func testOptions() Options {
	w := browser.Waiter{Timeout: 5 * time.Millisecond, Poll: time.Millisecond}
	return Options{
		Username: "outreach",
		Password: "secret",
		Location: outreach.LOCATION_ORLANDO,
		Wait:     w,
		LongWait: w,
	}
}

func newTestDriver(p *portal, opts Options, ledger Ledger) (*Driver, *telemetry.Recorder) {
	rec := &telemetry.Recorder{}
	return NewDriver(p.s, opts, ledger, rec), rec
}

func placeholder(name string, pairs ...string) *browsertest.Element {
	return browsertest.Select(name, "", append([]string{"", "--SELECT--"}, pairs...)...)
}

func inputs(name string, n int) []*browsertest.Element {
	out := make([]*browsertest.Element, n)
	for i := range out {
		out[i] = browsertest.New(fmt.Sprintf("%s %d", name, i))
	}
	return out
}

func newPortal(enrolled bool) *portal {
	s := browsertest.NewSession()
	p := &portal{s: s, top: s.Doc(), tab: s.Doc(frameTab)}

	p.top.
		Set(navClients, browsertest.New("nav clients")).
		Set(navDashboard, browsertest.New("nav dashboard")).
		Set(navFindClient, browsertest.New("nav find client")).
		Set(labelClientName, browsertest.New("client name").WithText("Maria Garcia"))

	cancel := browsertest.New("cancel workflow")
	cancel.OnClick = func() {
		p.dialogs++
		s.Doc(fmt.Sprintf("Frame%d", p.dialogs)).Set(buttonDialogYes, browsertest.New(fmt.Sprintf("yes %d", p.dialogs)))
	}
	p.top.Set(buttonCancelWorkflow, cancel)

	// dashboard and lists
	p.tab.
		Set(linkServices, browsertest.New("services link")).
		Set(linkEnrollments, browsertest.New("enrollments link")).
		Set(resultSet, browsertest.New("result set")).
		Set(buttonAddService, browsertest.New("add service")).
		Set(buttonNewEnrollment, browsertest.New("new enrollment"))

	// add service form
	enrollmentPairs := []string{"E1", "Emergency Shelter (ORL)"}
	if enrolled {
		enrollmentPairs = append(enrollmentPairs, "E2", outreachEnrollment)
	}
	p.enrollments = placeholder("enrollment", enrollmentPairs...)
	servicePairs := []string{}
	for _, code := range outreach.ServiceCodes() {
		servicePairs = append(servicePairs, serviceOptions[code], code.String())
	}
	p.service = placeholder("service", servicePairs...)
	p.units = browsertest.New("units")
	p.date = browsertest.New("service date")
	save := browsertest.New("save")
	save.OnClick = func() {
		if p.units.Value == "" {
			return
		}
		p.saved = append(p.saved, savedLine{
			Enrollment: p.enrollments.SelectedValue(),
			Service:    p.service.SelectedValue(),
			Units:      p.units.Value,
			Date:       p.date.Value,
		})
		p.units.Value = ""
		p.date.Value = ""
		if p.onSave != nil {
			p.onSave()
		}
	}
	p.tab.
		Set(dropdownEnrollment, p.enrollments).
		Set(dropdownService, p.service).
		Set(fieldUnits, p.units).
		Set(fieldServiceDate, p.date).
		Set(buttonSave, save).
		Set(buttonSaveAndClose, browsertest.New("save and close"))

	// intake
	p.tab.
		Set(dropdownVeteran, placeholder("veteran", "1", "Yes", "0", "No", "99", "Data not collected")).
		Set(dropdownProject, placeholder("project", "1217", "SALT ORL", "1157", "SALT SFD")).
		Set(rowsHousehold, browsertest.New("household row")).
		Set(dropdownsHousehold, placeholder("relationship", "SL", "Self")).
		Set(fieldsHouseholdDates, inputs("household date", 5)...)

	// universal data and insurance
	p.tab.
		Set(buttonDefaultUniversal, browsertest.New("default universal")).
		Set(fieldsAssessmentDates, browsertest.New("assessment date span")).
		Set(fieldAssessmentDate, browsertest.New("assessment date")).
		Set(dropdownDisabling, placeholder("disabling", "0", "No", "1", "Yes", "99", "Data not collected")).
		Set(dropdownCounty, placeholder("county", "1", "Orange", "2", "Seminole")).
		Set(dropdownPriorLiving, placeholder("prior living", "16", "Place not meant for habitation", "99", "Data not collected")).
		Set(dropdownLengthOfStay, placeholder("length of stay", "99", "Data not collected")).
		Set(fieldHomelessStart, browsertest.New("homeless start")).
		Set(dropdownStreetFreq, placeholder("street frequency", "99", "Data not collected")).
		Set(dropdownMonthsHomeless, placeholder("months homeless", "99", "Data not collected")).
		Set(buttonDefaultInsurance, browsertest.New("default insurance")).
		Set(dropdownInsurance, placeholder("insurance", "1", "Yes", "99", "Data not collected"))

	// barrier
	barriers := make([]*browsertest.Element, 8)
	for i := range barriers {
		barriers[i] = placeholder(fmt.Sprintf("barrier %d", i), "0", "No", "99", "Data not collected")
	}
	p.tab.
		Set(fieldBarrierDate, browsertest.New("barrier date")).
		Set(dropdownsBarrier, barriers...)

	// domestic violence
	p.tab.
		Set(buttonDefaultViolence, browsertest.New("default violence")).
		Set(fieldViolenceDate, browsertest.New("violence date")).
		Set(radiosViolence, inputs("violence radio", 5)...)

	// income
	p.tab.
		Set(buttonDefaultIncome, browsertest.New("default income")).
		Set(fieldIncomeDate, browsertest.New("income date")).
		Set(dropdownIncome, placeholder("income", "0", "No", "99", "Data not collected")).
		Set(dropdownNonCash, placeholder("non cash", "0", "No", "99", "Data not collected"))

	// living situation and translation
	p.tab.
		Set(dropdownLivingSituation, browsertest.Select("living situation", "1", "1", "Emergency shelter", "16", "Place not meant for habitation")).
		Set(buttonDefaultTranslation, browsertest.New("default translation")).
		Set(dropdownTranslation, placeholder("translation", "0", "No", "99", "Data not collected"))

	p.finish = browsertest.New("finish")
	p.finish.OnClick = func() {
		p.finishClicks++
		if p.enrollOnFinish {
			p.addOutreachEnrollment()
		}
	}
	p.tab.Set(buttonFinish, p.finish)

	return p
}

func (p *portal) addOutreachEnrollment() {
	p.enrollments.Options = append(p.enrollments.Options, browser.Option{Value: "E2", Text: outreachEnrollment})
}

func (p *portal) removeOutreachEnrollment() {
	kept := []browser.Option{}
	for _, o := range p.enrollments.Options {
		if o.Value != "E2" {
			kept = append(kept, o)
		}
	}
	p.enrollments.Options = kept
}

// memLedger is an in-memory Ledger.
type memLedger map[string]int

func ledgerKey(client string, code outreach.ServiceCode, date string) string {
	return client + "|" + code.String() + "|" + date
}

func (m memLedger) Saved(_ context.Context, client string, code outreach.ServiceCode, date string) (bool, error) {
	_, ok := m[ledgerKey(client, code, date)]
	return ok, nil
}

func (m memLedger) Record(_ context.Context, client string, line outreach.ServiceLine, date string) error {
	m[ledgerKey(client, line.Code, date)] = line.Count
	return nil
}
