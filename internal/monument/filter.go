package monument

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownField = errors.New("unknown field")

// Predicate selects monuments during a snapshot scan.
type Predicate func(m *Monument) bool

// Field names a filterable attribute.
type Field string

const (
	FieldProvince         Field = "province"
	FieldMunicipality     Field = "municipality"
	FieldLocality         Field = "locality"
	FieldMonumentType     Field = "monument-type"
	FieldConstructionType Field = "construction-type"
	FieldClassification   Field = "classification"
	FieldHistoricalPeriod Field = "historical-period"
)

// Match builds a predicate comparing field against value. List fields match
// when any element is equal.
func Match(field Field, value string, caseInsensitive bool) (Predicate, error) {
	eq := func(a string) bool { return a == value }
	if caseInsensitive {
		eq = func(a string) bool { return strings.EqualFold(a, value) }
	}

	switch field {
	case FieldProvince:
		return func(m *Monument) bool { return eq(m.Province) }, nil
	case FieldMunicipality:
		return func(m *Monument) bool { return eq(m.Municipality) }, nil
	case FieldLocality:
		return func(m *Monument) bool { return eq(m.Locality) }, nil
	case FieldMonumentType:
		return func(m *Monument) bool { return eq(m.MonumentType) }, nil
	case FieldClassification:
		return func(m *Monument) bool { return eq(m.Classification) }, nil
	case FieldConstructionType:
		return func(m *Monument) bool { return slices.ContainsFunc(m.ConstructionTypes, eq) }, nil
	case FieldHistoricalPeriod:
		return func(m *Monument) bool { return slices.ContainsFunc(m.HistoricalPeriods, eq) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func All(*Monument) bool { return true }
