package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"hmis-autoentry/internal/outreach"
)

// columns of the SALT report by client
const (
	COLUMN_HMIS_ID     = "HMIS ID"
	COLUMN_CLIENT_NAME = "Client Name"
	COLUMN_DOB         = "DoB"
	COLUMN_SERVICE     = "Service"
	COLUMN_ITEMS       = "Items"
)

// ItemTable selects how item codes and derived supplies are tallied.
type ItemTable string

const (
	// ITEMS_LEGACY counts body wash, shampoo and detergent as grooming items.
	ITEMS_LEGACY ItemTable = "legacy"
	// ITEMS_CURRENT counts detergent as laundry products.
	ITEMS_CURRENT ItemTable = "current"
)

func ParseItemTable(s string) (ItemTable, error) {
	switch ItemTable(s) {
	case "", ITEMS_LEGACY:
		return ITEMS_LEGACY, nil
	case ITEMS_CURRENT:
		return ITEMS_CURRENT, nil
	}
	return "", fmt.Errorf("unknown item table %q, expected legacy or current", s)
}

// itemCategory is a service code and the item codes tallied into it.
type itemCategory struct {
	code  outreach.ServiceCode
	items []string
}

var itemCategories = []itemCategory{
	{outreach.SERVICE_CLOTHING, []string{"TOP", "BTM", "UND", "SKS", "SHO", "BXR", "Diabetic Socks"}},
	{outreach.SERVICE_GROOMING, []string{"DDR", "TBR", "TPS", "Razors", "Adult Depends"}},
	{outreach.SERVICE_FOOD, []string{"SBG"}},
	{outreach.SERVICE_BEDDING, []string{"Blankets"}},
}

// services tallied from the service column, laundry is entered once for the wash and once for
// the dryer
var serviceColumn = []struct {
	name       string
	code       outreach.ServiceCode
	multiplier int
}{
	{"Shower", outreach.SERVICE_SHOWER, 1},
	{"Laundry", outreach.SERVICE_LAUNDRY, 2},
	{"Case Management", outreach.SERVICE_CASE_MANAGEMENT, 1},
	{"Bible Study", outreach.SERVICE_BIBLE_STUDY, 1},
}

const (
	// body wash and shampoo handed out with every shower
	suppliesPerShower = 2
	// one detergent pod per wash, laundry is already counted twice
	loadsPerDetergent = 2
)

// Entry is a report row turned into a client search and the services to record.
type Entry struct {
	// Row is the index of the row in Sheet.Rows.
	Row      int
	Name     string
	Query    outreach.ClientQuery
	Services outreach.ServiceSet
}

// Transform turns every row of the report into an Entry.
func Transform(s *Sheet, table ItemTable) ([]Entry, error) {
	for _, column := range []string{COLUMN_HMIS_ID, COLUMN_CLIENT_NAME, COLUMN_DOB, COLUMN_SERVICE, COLUMN_ITEMS} {
		if s.Column(column) < 0 {
			return nil, fmt.Errorf("report has no %q column", column)
		}
	}

	entries := make([]Entry, len(s.Rows))
	for i, row := range s.Rows {
		name := s.Cell(row, COLUMN_CLIENT_NAME)
		first, last := SplitName(name)
		entries[i] = Entry{
			Row:  i,
			Name: name,
			Query: outreach.ClientQuery{
				ID:        normalizeID(s.Cell(row, COLUMN_HMIS_ID)),
				Birthdate: TransposeBirthdate(s.Cell(row, COLUMN_DOB)),
				FirstName: first,
				LastName:  last,
			},
			Services: Tally(s.Cell(row, COLUMN_SERVICE), s.Cell(row, COLUMN_ITEMS), table),
		}
	}
	return entries, nil
}

// numeric ids read back from a spreadsheet can come with a fraction
func normalizeID(id string) string {
	if whole, frac, ok := strings.Cut(id, "."); ok && strings.Trim(frac, "0") == "" {
		return whole
	}
	return id
}

var nickname = regexp.MustCompile(`["“”][^"“”]*["“”]`)

// SplitName splits a report name into first and last name. Names are written "Last First" or
// "Last, First", quoted nicknames are dropped.
func SplitName(name string) (string, string) {
	name = strings.Join(strings.Fields(nickname.ReplaceAllString(name, " ")), " ")
	if last, first, ok := strings.Cut(name, ","); ok {
		return strings.TrimSpace(first), strings.TrimSpace(last)
	}
	last, first, _ := strings.Cut(name, " ")
	return first, last
}

// TransposeBirthdate turns the report's day first birthdate into the MMDDYYYY form the HMIS
// search expects. Values that are not a date are returned unchanged.
func TransposeBirthdate(dob string) string {
	parts := strings.FieldsFunc(dob, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	switch {
	case len(parts) == 3:
		day, month, year := parts[0], parts[1], parts[2]
		if len(day) > 2 || len(month) > 2 {
			return dob
		}
		return pad2(month) + pad2(day) + year
	case len(parts) == 1 && len(parts[0]) == 8:
		digits := parts[0]
		return digits[2:4] + digits[0:2] + digits[4:]
	}
	return dob
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// countAfter returns the count following the first ':' after the first occurrence of name.
func countAfter(text, name string) (int, bool) {
	i := strings.Index(text, name)
	if i < 0 {
		return 0, false
	}
	rest := text[i+len(name):]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return 0, false
	}
	rest = strings.TrimLeft(rest[colon+1:], " \t")
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Tally counts the services of a row out of its service column ("Shower (01-01-2024) : 1",
// one per line) and its item column ("TOP Shirt : 2"). Only the first occurrence of each
// service or item code counts.
func Tally(services, items string, table ItemTable) outreach.ServiceSet {
	counts := map[outreach.ServiceCode]int{}
	for _, s := range serviceColumn {
		n, ok := countAfter(services, s.name)
		if ok {
			counts[s.code] += n * s.multiplier
		}
	}
	for _, category := range itemCategories {
		for _, item := range category.items {
			n, ok := countAfter(items, item)
			if ok {
				counts[category.code] += n
			}
		}
	}

	counts[outreach.SERVICE_GROOMING] += counts[outreach.SERVICE_SHOWER] * suppliesPerShower
	detergent := counts[outreach.SERVICE_LAUNDRY] / loadsPerDetergent
	if table == ITEMS_CURRENT {
		counts[outreach.SERVICE_LAUNDRY_PRODUCTS] += detergent
	} else {
		counts[outreach.SERVICE_GROOMING] += detergent
	}
	return outreach.NewServiceSet(counts)
}
