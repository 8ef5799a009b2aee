package hmis

import (
	"context"
	"testing"

	"hmis-autoentry/internal/browser/browsertest"

	"github.com/stretchr/testify/require"
)

func withSearchPage(p *portal) (*browsertest.Element, *browsertest.Element) {
	id := browsertest.New("client id")
	birthdate := browsertest.New("birthdate")
	p.tab.
		Set(fieldClientID, id).
		Set(fieldBirthdate, birthdate).
		Set(buttonSearch, browsertest.New("search"))
	return id, birthdate
}

func TestLocateByID(t *testing.T) {
	cases := []struct {
		name        string
		title       string
		first, last string
		kind        Kind
	}{
		{name: "same name", title: "Maria Garcia's Profile", first: "Maria", last: "Garcia"},
		{name: "swapped name", title: "Maria Garcia's Profile", first: "Garcia", last: "Maria"},
		{name: "swapped name only", title: "Xu Li's Profile", first: "Li", last: "Xu"},
		{name: "misspelled name", title: "Jon Smyth's Profile", first: "John", last: "Smith"},
		{name: "different client", title: "Peter Parker's Profile", first: "Maria", last: "Garcia", kind: KIND_NO_MATCH},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := newPortal(true)
			id, _ := withSearchPage(p)
			p.tab.Set(labelProfileTitle, browsertest.New("profile").WithAttr("title", c.title))
			d, rec := newTestDriver(p, testOptions(), nil)

			err := d.LocateByID(context.Background(), "1234567", c.first, c.last)
			require.Equal(t, []string{"1234567"}, id.Typed)
			require.Equal(t, 1, p.top.Get(navFindClient).Clicks)
			if c.kind == 0 {
				require.NoError(t, err)
				return
			}
			require.Equal(t, c.kind, KindOf(err))
			require.True(t, rec.Has("warning", report_locate_by_id))
			require.Equal(t, OUTCOME_NOT_FOUND, OutcomeOf(OP_LOCATE_BY_ID, err))
		})
	}
}

func TestLocateByIDWithoutProfile(t *testing.T) {
	p := newPortal(true)
	withSearchPage(p)
	d, _ := newTestDriver(p, testOptions(), nil)

	err := d.LocateByID(context.Background(), "1234567", "Maria", "Garcia")
	require.Equal(t, KIND_NOT_FOUND, KindOf(err))

	var f *Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, "profile", f.Step)
}

func TestLocateWithoutSidebar(t *testing.T) {
	p := newPortal(true)
	p.top.Remove(navFindClient)
	d, _ := newTestDriver(p, testOptions(), nil)

	err := d.LocateByID(context.Background(), "1234567", "Maria", "Garcia")
	require.Equal(t, KIND_NOT_FOUND, KindOf(err))
}

func searchResult(first, last, middle string) *browsertest.Element {
	row := browsertest.New(first + " " + last)
	row.Child(cellFirstName, browsertest.New("first").WithText(first))
	row.Child(cellLastName, browsertest.New("last").WithText(last))
	if middle != "" {
		row.Child(cellMiddleName, browsertest.New("middle").WithText(middle))
	}
	return row
}

func TestLocateByBirthdate(t *testing.T) {
	p := newPortal(true)
	_, birthdate := withSearchPage(p)
	rows := []*browsertest.Element{
		searchResult("Jane", "Gates", ""),
		searchResult("Baxton", "Yates", "James"),
	}
	p.tab.Set(rowsSearchResult, rows...)
	d, rec := newTestDriver(p, testOptions(), nil)

	err := d.LocateByBirthdate(context.Background(), "02141988", "James", "Baxton Yates")
	require.NoError(t, err)
	require.Equal(t, []string{"02141988"}, birthdate.Typed)
	require.Equal(t, 0, rows[0].Clicks)
	require.Equal(t, 1, rows[1].Clicks)
	require.True(t, rec.Has("debug", report_locate_by_birthdate))
}

func TestLocateByBirthdateNoMatch(t *testing.T) {
	p := newPortal(true)
	withSearchPage(p)
	row := searchResult("Peter", "Parker", "")
	p.tab.Set(rowsSearchResult, row)
	d, _ := newTestDriver(p, testOptions(), nil)

	err := d.LocateByBirthdate(context.Background(), "02141988", "John", "Smith")
	require.Equal(t, KIND_NO_MATCH, KindOf(err))
	require.Equal(t, 0, row.Clicks)
}

func TestLocateByBirthdateNoResults(t *testing.T) {
	p := newPortal(true)
	withSearchPage(p)
	d, _ := newTestDriver(p, testOptions(), nil)

	err := d.LocateByBirthdate(context.Background(), "02141988", "John", "Smith")
	require.Equal(t, KIND_NOT_FOUND, KindOf(err))
}

func TestSplitProfileTitle(t *testing.T) {
	first, last := splitProfileTitle("Maria Garcia's Profile")
	require.Equal(t, "Maria", first)
	require.Equal(t, "Garcia", last)

	first, last = splitProfileTitle("Baxton Yates Jr's Profile")
	require.Equal(t, "Baxton", first)
	require.Equal(t, "Yates Jr", last)
}
