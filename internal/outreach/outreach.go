// Package outreach contains the records shared between the report, the batch runner and the HMIS
// driver: who a client is, where they were served and what they received.
package outreach

import (
	"fmt"
	"sort"
	"strings"
)

// Location is one of the two outreach sites.
type Location string

const (
	LOCATION_ORLANDO Location = "ORL"
	LOCATION_SANFORD Location = "SFD"
)

func ParseLocation(s string) (Location, error) {
	switch Location(strings.ToUpper(strings.TrimSpace(s))) {
	case LOCATION_ORLANDO:
		return LOCATION_ORLANDO, nil
	case LOCATION_SANFORD:
		return LOCATION_SANFORD, nil
	}
	return "", fmt.Errorf("unknown location %q, expected ORL or SFD", s)
}

// ClientQuery identifies a client to search for in HMIS.
//
// ID takes precedence over Birthdate (MMDDYYYY), first and last name are always set (possibly
// empty) since every strategy scores candidates against them.
type ClientQuery struct {
	ID        string
	Birthdate string
	FirstName string
	LastName  string
}

type SearchStrategy int

const (
	SEARCH_INSUFFICIENT SearchStrategy = iota
	SEARCH_BY_ID
	SEARCH_BY_BIRTHDATE
	SEARCH_BY_NAME
)

func (s SearchStrategy) String() string {
	switch s {
	case SEARCH_BY_ID:
		return "by-id"
	case SEARCH_BY_BIRTHDATE:
		return "by-birthdate"
	case SEARCH_BY_NAME:
		return "by-name"
	}
	return "insufficient-data"
}

// Strategy returns the search strategy a query resolves to.
func (q ClientQuery) Strategy() SearchStrategy {
	switch {
	case strings.TrimSpace(q.ID) != "":
		return SEARCH_BY_ID
	case strings.TrimSpace(q.Birthdate) != "":
		return SEARCH_BY_BIRTHDATE
	case strings.TrimSpace(q.FirstName) != "" && strings.TrimSpace(q.LastName) != "":
		return SEARCH_BY_NAME
	}
	return SEARCH_INSUFFICIENT
}

// Key identifies the client across runs, the HMIS id when known, otherwise birthdate and name.
func (q ClientQuery) Key() string {
	if id := strings.TrimSpace(q.ID); id != "" {
		return "id:" + id
	}
	return strings.ToLower(fmt.Sprintf(
		"dob:%s:%s:%s",
		strings.TrimSpace(q.Birthdate),
		strings.TrimSpace(q.LastName),
		strings.TrimSpace(q.FirstName),
	))
}

func (q ClientQuery) String() string {
	return fmt.Sprintf("%s %s (id=%q dob=%q)", q.FirstName, q.LastName, q.ID, q.Birthdate)
}

// EnrollmentPreference is an ordered list of program name substrings, most preferred first.
type EnrollmentPreference []string

// Rank returns the index of the first preference contained in name, or -1.
func (p EnrollmentPreference) Rank(name string) int {
	for i, pref := range p {
		if pref != "" && strings.Contains(name, pref) {
			return i
		}
	}
	return -1
}

// ServiceCode is a service or item category that can be recorded against a client, the
// declaration order is the order services are entered in.
type ServiceCode int

const (
	SERVICE_SHOWER ServiceCode = iota
	SERVICE_LAUNDRY
	SERVICE_LAUNDRY_PRODUCTS
	SERVICE_BEDDING
	SERVICE_CLOTHING
	SERVICE_GROOMING
	SERVICE_FOOD
	SERVICE_CASE_MANAGEMENT
	SERVICE_BIBLE_STUDY
)

var serviceNames = []string{
	"Shower",
	"Laundry",
	"Laundry Products",
	"Bedding",
	"Clothing",
	"Grooming",
	"Food",
	"Case Management",
	"Bible Study",
}

// ServiceCodes lists every known service code in entry order.
func ServiceCodes() []ServiceCode {
	out := make([]ServiceCode, len(serviceNames))
	for i := range serviceNames {
		out[i] = ServiceCode(i)
	}
	return out
}

func (c ServiceCode) String() string {
	if c < 0 || int(c) >= len(serviceNames) {
		return fmt.Sprintf("ServiceCode(%d)", int(c))
	}
	return serviceNames[c]
}

func ParseServiceCode(s string) (ServiceCode, error) {
	s = strings.TrimSpace(s)
	for i, name := range serviceNames {
		if strings.EqualFold(name, s) {
			return ServiceCode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown service %q", s)
}

// ServiceLine is a single service and how many units of it a client received.
type ServiceLine struct {
	Code  ServiceCode
	Count int
}

// ServiceSet is a client's service lines, sorted by code with one line per code and only
// positive counts.
type ServiceSet []ServiceLine

// NewServiceSet builds a ServiceSet out of per-code counts, dropping counts that are not positive.
func NewServiceSet(counts map[ServiceCode]int) ServiceSet {
	out := ServiceSet{}
	for code, n := range counts {
		if n > 0 {
			out = append(out, ServiceLine{Code: code, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}

// Count returns the count recorded for code, or 0.
func (s ServiceSet) Count(code ServiceCode) int {
	for _, line := range s {
		if line.Code == code {
			return line.Count
		}
	}
	return 0
}

// Counts returns the set as a map.
func (s ServiceSet) Counts() map[ServiceCode]int {
	out := make(map[ServiceCode]int, len(s))
	for _, line := range s {
		out[line.Code] += line.Count
	}
	return out
}

// String renders the set as "Shower: 1\nLaundry: 2", the form written into the manual entry sheet.
func (s ServiceSet) String() string {
	lines := make([]string, len(s))
	for i, line := range s {
		lines[i] = fmt.Sprintf("%s: %d", line.Code, line.Count)
	}
	return strings.Join(lines, "\n")
}
