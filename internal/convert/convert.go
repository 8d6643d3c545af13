// Package convert maps raw source items onto monument records.
package convert

import (
	"strings"

	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/monument"
	"github.com/bowerhall/monumentd/internal/source"
)

// Delimiter separates multi-valued text fields in the source.
const Delimiter = ";"

// Convert returns false when the item has no usable identifier.
func Convert(item source.Item) (monument.Monument, bool) {
	f := item.Fields

	id, ok := f.Identificador.Int()
	if !ok {
		logger.Warn("skipping source record without identifier", "record_id", item.RecordID, "name", f.Nombre)
		return monument.Monument{}, false
	}

	m := monument.Monument{
		ID:                id,
		Name:              strings.TrimSpace(f.Nombre),
		Description:       strings.TrimSpace(f.Descripcion),
		Street:            strings.TrimSpace(f.Calle),
		PostalCode:        strings.TrimSpace(f.CodigoPostal.String()),
		Locality:          strings.TrimSpace(f.PoblacionLocalidad),
		Municipality:      strings.TrimSpace(f.PoblacionMunicipio),
		Province:          strings.TrimSpace(f.PoblacionProvincia),
		MonumentType:      strings.TrimSpace(f.TipoMonumento),
		ConstructionTypes: Split(f.TipoConstruccion),
		Classification:    strings.TrimSpace(f.Clasificacion),
		HistoricalPeriods: Split(f.PeriodoHistorico),
	}

	// best effort: a malformed asset id only loses the image
	if assetID, ok := f.IdentificadorBienInteresCultural.Int(); ok {
		m.AssetID = &assetID
	} else if f.IdentificadorBienInteresCultural.Present() {
		logger.Debug("unparsable asset id", "id", id, "value", f.IdentificadorBienInteresCultural.String())
	}

	lat, okLat := f.CoordenadasLatitud.Float()
	lon, okLon := f.CoordenadasLongitud.Float()
	if okLat && okLon {
		m.Location = &monument.Location{Latitude: lat, Longitude: lon}
	}

	return m, true
}

// ConvertAll converts a whole payload and reports how many items were
// skipped. When an id repeats, the later item wins.
func ConvertAll(items []source.Item) ([]monument.Monument, int) {
	out := make([]monument.Monument, 0, len(items))
	index := make(map[int]int, len(items))
	skipped := 0

	for _, item := range items {
		m, ok := Convert(item)
		if !ok {
			skipped++
			continue
		}

		if i, dup := index[m.ID]; dup {
			logger.Debug("duplicate id in source payload", "id", m.ID)
			out[i] = m
			continue
		}

		index[m.ID] = len(out)
		out = append(out, m)
	}

	return out, skipped
}

// Split breaks a delimited label list, keeping source order and duplicates.
func Split(s string) []string {
	labels := []string{}
	for _, part := range strings.Split(s, Delimiter) {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}
