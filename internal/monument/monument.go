// Package monument defines the normalized point-of-interest record served by
// the catalog, its base projection and the predicates used to filter it.
package monument

// Monument is one normalized record. ID is stable across refreshes.
type Monument struct {
	ID                int       `json:"id"`
	AssetID           *int      `json:"assetId,omitempty"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Street            string    `json:"street,omitempty"`
	PostalCode        string    `json:"postalCode,omitempty"`
	Locality          string    `json:"locality,omitempty"`
	Municipality      string    `json:"municipality,omitempty"`
	Province          string    `json:"province,omitempty"`
	Location          *Location `json:"location,omitempty"`
	MonumentType      string    `json:"monumentType,omitempty"`
	ConstructionTypes []string  `json:"constructionTypes"`
	Classification    string    `json:"classification,omitempty"`
	HistoricalPeriods []string  `json:"historicalPeriods"`
	HasImage          bool      `json:"hasImage"`
}

// Location is only ever set with both coordinates.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Base is the reduced view returned by list endpoints that do not need the
// full description and category fields.
type Base struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Municipality string    `json:"municipality,omitempty"`
	Province     string    `json:"province,omitempty"`
	Location     *Location `json:"location,omitempty"`
	HasImage     bool      `json:"hasImage"`
}

func (m *Monument) Base() Base {
	return Base{
		ID:           m.ID,
		Name:         m.Name,
		Municipality: m.Municipality,
		Province:     m.Province,
		Location:     m.Location,
		HasImage:     m.HasImage,
	}
}

func Bases(monuments []Monument) []Base {
	out := make([]Base, len(monuments))
	for i := range monuments {
		out[i] = monuments[i].Base()
	}
	return out
}
