package convert

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/monument"
	"github.com/bowerhall/monumentd/internal/source"
)

func TestConvertFullRecord(t *testing.T) {
	item := source.Item{
		RecordID: "r1",
		Fields: source.Fields{
			Identificador:                    source.StringValue("5100"),
			IdentificadorBienInteresCultural: source.StringValue("7020"),
			Nombre:                           " Castillo de Peñafiel ",
			CodigoPostal:                     source.StringValue("47300"),
			PoblacionMunicipio:               "Peñafiel",
			PoblacionProvincia:               "Valladolid",
			CoordenadasLatitud:               source.FloatValue(41.5962),
			CoordenadasLongitud:              source.FloatValue(-4.1164),
			TipoMonumento:                    "Castillos",
			TipoConstruccion:                 "Castillos;Murallas",
			Clasificacion:                    "Bien de Interés Cultural",
			PeriodoHistorico:                 "Edad Media; Gótico ;Edad Media",
		},
	}

	m, ok := Convert(item)
	require.True(t, ok)

	assert.Equal(t, 5100, m.ID)
	require.NotNil(t, m.AssetID)
	assert.Equal(t, 7020, *m.AssetID)
	assert.Equal(t, "Castillo de Peñafiel", m.Name)
	assert.Equal(t, "47300", m.PostalCode)
	assert.Equal(t, &monument.Location{Latitude: 41.5962, Longitude: -4.1164}, m.Location)
	assert.Equal(t, []string{"Castillos", "Murallas"}, m.ConstructionTypes)
	assert.Equal(t, []string{"Edad Media", "Gótico", "Edad Media"}, m.HistoricalPeriods)
	assert.False(t, m.HasImage)
}

func TestConvertLocationAllOrNothing(t *testing.T) {
	item := source.Item{Fields: source.Fields{
		Identificador:      source.StringValue("1"),
		CoordenadasLatitud: source.FloatValue(41.0),
	}}

	m, ok := Convert(item)
	require.True(t, ok)
	assert.Nil(t, m.Location)
}

func TestConvertBadAssetIDKeepsRecord(t *testing.T) {
	item := source.Item{Fields: source.Fields{
		Identificador:                    source.StringValue("2"),
		IdentificadorBienInteresCultural: source.StringValue("not-a-number"),
	}}

	m, ok := Convert(item)
	require.True(t, ok)
	assert.Nil(t, m.AssetID)
	assert.Equal(t, []string{}, m.HistoricalPeriods)
}

func TestConvertAllSkipsMissingIdentifier(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	items := []source.Item{
		{RecordID: "a", Fields: source.Fields{Identificador: source.StringValue("1"), Nombre: "Uno"}},
		{RecordID: "b", Fields: source.Fields{Nombre: "Sin id"}},
		{RecordID: "c", Fields: source.Fields{Identificador: source.StringValue("3"), Nombre: "Tres"}},
	}

	out, skipped := ConvertAll(items)
	require.Len(t, out, 2)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, 3, out[1].ID)
	assert.Equal(t, 1, strings.Count(buf.String(), "skipping source record without identifier"))
}

func TestConvertAllLastDuplicateWins(t *testing.T) {
	items := []source.Item{
		{Fields: source.Fields{Identificador: source.StringValue("9"), Nombre: "old"}},
		{Fields: source.Fields{Identificador: source.StringValue("9"), Nombre: "new"}},
	}

	out, skipped := ConvertAll(items)
	require.Len(t, out, 1)
	assert.Zero(t, skipped)
	assert.Equal(t, "new", out[0].Name)
}

func TestConvertMistypedFieldsAfterDecode(t *testing.T) {
	items, err := source.Decode([]byte(`{"records": [
  {"recordid": "a", "fields": {"identificador": 1, "identificadorbieninterescultural": 70}},
  {"recordid": "b", "fields": {
    "identificador": 2,
    "identificadorbieninterescultural": true,
    "coordenadas_latitud": "41.5",
    "coordenadas_longitud": -4.1
  }},
  {"recordid": "c", "fields": {"identificador": 3, "nombre": 12}}
]}`))
	require.NoError(t, err)

	out, skipped := ConvertAll(items)
	assert.Zero(t, skipped)
	require.Len(t, out, 2)

	require.NotNil(t, out[0].AssetID)
	assert.Equal(t, 70, *out[0].AssetID)

	assert.Equal(t, 2, out[1].ID)
	assert.Nil(t, out[1].AssetID)
	assert.Nil(t, out[1].Location)
}
