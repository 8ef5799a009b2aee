package report

import (
	"path/filepath"
	"testing"
	"time"

	"hmis-autoentry/internal/outreach"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var reportHeader = []string{"", COLUMN_HMIS_ID, COLUMN_CLIENT_NAME, "Race", COLUMN_SERVICE, COLUMN_ITEMS, COLUMN_DOB}

func writeReport(t *testing.T, rows ...[]string) (string, *Sheet) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Report_by_client_03-14-2024.xlsx")
	err := WriteSheet(path, &Sheet{Name: "Report", Header: reportHeader, Rows: rows})
	require.NoError(t, err)

	s, err := ReadSheet(path)
	require.NoError(t, err)
	return path, s
}

func TestEndToEndRow(t *testing.T) {
	_, s := writeReport(t, []string{
		"0", "12345", "Smith John", "", "Shower (01-01-2024) : 1\nLaundry (01-01-2024) : 1", "", "01011990",
	})

	entries, err := Transform(s, ITEMS_LEGACY)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Equal(t, outreach.ClientQuery{ID: "12345", Birthdate: "01011990", FirstName: "John", LastName: "Smith"}, e.Query)
	require.Equal(t, outreach.SEARCH_BY_ID, e.Query.Strategy())
	require.Equal(t, map[outreach.ServiceCode]int{
		outreach.SERVICE_SHOWER:   1,
		outreach.SERVICE_LAUNDRY:  2,
		outreach.SERVICE_GROOMING: 3,
	}, e.Services.Counts())
}

func TestReadSheetSkipsBlankRows(t *testing.T) {
	_, s := writeReport(t,
		[]string{"0", "1", "Smith John", "", "", "", ""},
		[]string{"", "", "", "", "", "", ""},
		[]string{"2", "", "Doe Jane", "", "", "", "14-03-1980"},
	)
	require.Len(t, s.Rows, 2)
	require.Equal(t, "Doe Jane", s.Cell(s.Rows[1], COLUMN_CLIENT_NAME))
	require.Equal(t, "", s.Cell(s.Rows[0], "Missing"))
	require.Len(t, s.Rows[0], len(reportHeader))
}

func TestTransformRequiresColumns(t *testing.T) {
	_, err := Transform(&Sheet{Header: []string{COLUMN_HMIS_ID, COLUMN_CLIENT_NAME}}, ITEMS_LEGACY)
	require.ErrorContains(t, err, COLUMN_DOB)
}

func TestTally(t *testing.T) {
	cases := []struct {
		name     string
		services string
		items    string
		table    ItemTable
		expected map[outreach.ServiceCode]int
	}{
		{
			name:     "shower",
			services: "Shower (01-01-2024) : 3",
			table:    ITEMS_LEGACY,
			expected: map[outreach.ServiceCode]int{
				outreach.SERVICE_SHOWER:   3,
				outreach.SERVICE_GROOMING: 6,
			},
		},
		{
			name:     "counts above nine",
			services: "Laundry (01-01-2024) : 12",
			table:    ITEMS_LEGACY,
			expected: map[outreach.ServiceCode]int{
				outreach.SERVICE_LAUNDRY:  24,
				outreach.SERVICE_GROOMING: 12,
			},
		},
		{
			name:     "detergent as laundry products",
			services: "Shower (01-01-2024) : 1\nLaundry (01-01-2024) : 1",
			table:    ITEMS_CURRENT,
			expected: map[outreach.ServiceCode]int{
				outreach.SERVICE_SHOWER:           1,
				outreach.SERVICE_LAUNDRY:          2,
				outreach.SERVICE_GROOMING:         2,
				outreach.SERVICE_LAUNDRY_PRODUCTS: 1,
			},
		},
		{
			name:     "items by category",
			services: "Case Management (01-01-2024) : 1",
			items:    "TOP Shirt : 2\nSKS Socks : 1\nDDR Deodorant : 1\nSBG Snack bag : 3\nBlankets : 1",
			table:    ITEMS_LEGACY,
			expected: map[outreach.ServiceCode]int{
				outreach.SERVICE_CASE_MANAGEMENT: 1,
				outreach.SERVICE_CLOTHING:        3,
				outreach.SERVICE_GROOMING:        1,
				outreach.SERVICE_FOOD:            3,
				outreach.SERVICE_BEDDING:         1,
			},
		},
		{
			name:     "only the first occurrence counts",
			services: "Shower (01-01-2024) : 1\nShower (01-02-2024) : 1",
			items:    "TOP Shirt : 1\nTOP Sweater : 4",
			table:    ITEMS_LEGACY,
			expected: map[outreach.ServiceCode]int{
				outreach.SERVICE_SHOWER:   1,
				outreach.SERVICE_CLOTHING: 1,
				outreach.SERVICE_GROOMING: 2,
			},
		},
		{
			name:     "nothing",
			table:    ITEMS_LEGACY,
			expected: map[outreach.ServiceCode]int{},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Tally(c.services, c.items, c.table).Counts()
			if diff := cmp.Diff(c.expected, got); diff != "" {
				t.Fatalf("counts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		name, first, last string
	}{
		{"Smith John", "John", "Smith"},
		{"Smith, John", "John", "Smith"},
		{`Smith "Johnny" John`, "John", "Smith"},
		{"Yates Baxton James", "Baxton James", "Yates"},
		{"Cher", "", "Cher"},
	}
	for _, c := range cases {
		first, last := SplitName(c.name)
		require.Equal(t, c.first, first, c.name)
		require.Equal(t, c.last, last, c.name)
	}
}

func TestTransposeBirthdate(t *testing.T) {
	cases := map[string]string{
		"14-03-1980": "03141980",
		"4/3/1980":   "03041980",
		"14031980":   "03141980",
		"":           "",
		"unknown":    "unknown",
	}
	for in, expected := range cases {
		require.Equal(t, expected, TransposeBirthdate(in), in)
	}
}

func TestFailureSetCheckpoint(t *testing.T) {
	_, s := writeReport(t,
		[]string{"0", "1", "Client C", "", "", "", ""},
		[]string{"1", "2", "Client D", "", "", "", ""},
	)
	path := filepath.Join(t.TempDir(), "ORL_Failed_entries_03-14-2024.xlsx")

	fs, err := NewFailureSet(path, s)
	require.NoError(t, err)
	persisted, err := ReadSheet(path)
	require.NoError(t, err)
	require.Len(t, persisted.Rows, 2)

	require.NoError(t, fs.Remove(0))
	// the process dies here, before client D is processed

	persisted, err = ReadSheet(path)
	require.NoError(t, err)
	require.Equal(t, reportHeader, persisted.Header)
	require.Len(t, persisted.Rows, 1)
	require.Equal(t, "Client D", persisted.Cell(persisted.Rows[0], COLUMN_CLIENT_NAME))
	require.False(t, fs.Contains(0))
	require.True(t, fs.Contains(1))

	// removing again changes nothing
	require.NoError(t, fs.Remove(0))
	require.Equal(t, 1, fs.Len())
	persisted, err = ReadSheet(path)
	require.NoError(t, err)
	require.Len(t, persisted.Rows, 1)
}

func TestFailureSetRerun(t *testing.T) {
	// a retry round reads the failure sheet and checkpoints over it
	path, s := writeReport(t,
		[]string{"0", "1", "Client C", "", "", "", ""},
		[]string{"1", "2", "Client D", "", "", "", ""},
	)
	fs, err := NewFailureSet(path, s)
	require.NoError(t, err)
	require.NoError(t, fs.Remove(1))

	persisted, err := ReadSheet(path)
	require.NoError(t, err)
	require.Len(t, persisted.Rows, 1)
	require.Equal(t, "Client C", persisted.Cell(persisted.Rows[0], COLUMN_CLIENT_NAME))
}

func TestWriteManualSheet(t *testing.T) {
	day := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), ManualFileName(outreach.LOCATION_ORLANDO, day))
	require.Equal(t, "ORL 14 Mar 2024.xlsx", filepath.Base(path))

	entries := []Entry{{
		Name:  "Smith John",
		Query: outreach.ClientQuery{ID: "12345", Birthdate: "01011990"},
		Services: outreach.NewServiceSet(map[outreach.ServiceCode]int{
			outreach.SERVICE_SHOWER:  1,
			outreach.SERVICE_LAUNDRY: 2,
		}),
	}}
	require.NoError(t, WriteManualSheet(path, ManualSheetName(day), entries))

	s, err := ReadSheet(path)
	require.NoError(t, err)
	require.Equal(t, "14 Mar 2024", s.Name)
	require.Equal(t, []string{"HMIS ID", "Client Name", "Services", "DoB"}, s.Header)
	require.Equal(t, [][]string{{"12345", "Smith John", "Shower: 1\nLaundry: 2", "01011990"}}, s.Rows)
}

func TestFileNames(t *testing.T) {
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "Report_by_client_03-04-2024.xlsx", ReportFileName(day))
	require.Equal(t, "SFD_Failed_entries_03-04-2024.xlsx", FailureFileName(outreach.LOCATION_SANFORD, day))
	require.Equal(t, "03042024", ServiceDate(day))

	parsed, err := DateFromFileName("/tmp/ORL_Failed_entries_03-04-2024.xlsx")
	require.NoError(t, err)
	require.True(t, day.Equal(parsed))

	_, err = DateFromFileName("report.xlsx")
	require.Error(t, err)
}

func TestListItems(t *testing.T) {
	_, s := writeReport(t,
		[]string{"0", "1", "Smith John", "", "", "TOP Shirt : 2\nSHOE : 1", ""},
		[]string{"1", "2", "Doe Jane", "", "", "TOP : 1 SBG : 1", ""},
	)
	tokens := ListItems(s)

	byToken := map[string]ItemToken{}
	for _, tok := range tokens {
		byToken[tok.Token] = tok
	}
	require.True(t, byToken["TOP"].Known)
	require.Equal(t, outreach.SERVICE_CLOTHING, byToken["TOP"].Category)
	require.True(t, byToken["SBG"].Known)
	require.False(t, byToken["Shirt"].Known)

	suggestion := SuggestItemCode("SHOE")
	require.Equal(t, "SHO", suggestion.Suggestion)
	require.Greater(t, suggestion.Similarity, 0.9)
}
