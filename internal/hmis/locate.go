package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
	"strings"
)

const (
	report_locate_by_id        = "locator.by-id"
	report_locate_by_birthdate = "locator.by-birthdate"
)

// LocateByID searches for a client by their HMIS id and checks that the profile it lands on
// belongs to a client with a similar name, on success the client's dashboard is loaded.
func (d *Driver) LocateByID(ctx context.Context, id, first, last string) error {
	err := d.NavigateToFindClient(ctx)
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_ID, "find-client", err)
	}

	err = d.search(ctx, fieldClientID, id)
	if err != nil {
		d.tel.ReportWarning(report_locate_by_id, id, err)
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_ID, "search", err)
	}

	// a search by id loads the client dashboard directly
	err = d.tab(ctx, "client dashboard")
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_ID, "profile", err)
	}
	label, err := d.wait.Element(ctx, d.session, labelProfileTitle)
	if err != nil {
		d.tel.ReportWarning(report_locate_by_id, id, err)
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_ID, "profile", err)
	}
	title, err := label.Attribute(ctx, "title")
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_ID, "profile", err)
	}

	profileFirst, profileLast := splitProfileTitle(title)
	ok, direct, swapped := IDMatches(profileFirst, profileLast, first, last)
	if !ok {
		err := fmt.Errorf(
			"profile %q does not match %s %s (score %.2f, swapped %.2f)",
			profileFirst+" "+profileLast, first, last, direct, swapped,
		)
		d.tel.ReportWarning(report_locate_by_id, id, err)
		return fail(KIND_NO_MATCH, OP_LOCATE_BY_ID, "compare", err)
	}
	return nil
}

// splitProfileTitle reads the client name out of a profile title like "John Smith's Profile".
func splitProfileTitle(title string) (string, string) {
	name, _, _ := strings.Cut(title, "'s")
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, last
}

// LocateByBirthdate searches for clients born on birthdate (MMDDYYYY) and opens the result
// that best matches the client's name.
func (d *Driver) LocateByBirthdate(ctx context.Context, birthdate, first, last string) error {
	err := d.NavigateToFindClient(ctx)
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_BIRTHDAY, "find-client", err)
	}

	err = d.search(ctx, fieldBirthdate, birthdate)
	if err != nil {
		d.tel.ReportWarning(report_locate_by_birthdate, birthdate, err)
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_BIRTHDAY, "search", err)
	}

	rows, err := d.wait.Elements(ctx, d.session, rowsSearchResult)
	if err != nil {
		d.tel.ReportWarning(report_locate_by_birthdate, birthdate, err)
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_BIRTHDAY, "results", err)
	}

	candidates := make([]MatchCandidate, 0, len(rows))
	for _, row := range rows {
		c := MatchCandidate{Row: row}
		c.FirstName, err = textOf(ctx, row, cellFirstName)
		if err == nil {
			c.LastName, err = textOf(ctx, row, cellLastName)
		}
		if err != nil {
			return fail(KIND_NOT_FOUND, OP_LOCATE_BY_BIRTHDAY, "results", err)
		}
		// not every result layout carries a middle name column
		c.MiddleName, _ = textOf(ctx, row, cellMiddleName)
		candidates = append(candidates, c)
	}

	idx, score, ok := SelectCandidate(candidates, first, last)
	if !ok {
		err := fmt.Errorf("none of %d results match %s %s", len(candidates), first, last)
		d.tel.ReportWarning(report_locate_by_birthdate, birthdate, err)
		return fail(KIND_NO_MATCH, OP_LOCATE_BY_BIRTHDAY, "compare", err)
	}
	d.tel.ReportDebug(
		report_locate_by_birthdate,
		candidates[idx].FirstName, candidates[idx].MiddleName, candidates[idx].LastName, score,
	)

	err = candidates[idx].Row.Click(ctx)
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_LOCATE_BY_BIRTHDAY, "open", err)
	}
	return nil
}

// search fills in a search field on the find client page and submits it.
func (d *Driver) search(ctx context.Context, field browser.Selector, value string) error {
	err := d.tab(ctx, "find client")
	if err != nil {
		return err
	}
	input, err := d.wait.Element(ctx, d.session, field)
	if err != nil {
		return err
	}
	err = input.Click(ctx)
	if err != nil {
		return err
	}
	err = input.Type(ctx, value)
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, buttonSearch)
}
