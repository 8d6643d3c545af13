package source

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Item is one record of the open-data search response.
type Item struct {
	RecordID string `json:"recordid"`
	Fields   Fields `json:"fields"`
}

// Fields mirrors the field map of the monuments dataset. Everything is
// optional; identifiers may arrive as numbers or strings.
type Fields struct {
	Identificador                    Value  `json:"identificador"`
	IdentificadorBienInteresCultural Value  `json:"identificadorbieninterescultural"`
	Nombre                           string `json:"nombre"`
	Descripcion                      string `json:"descripcion"`
	Calle                            string `json:"calle"`
	CodigoPostal                     Value  `json:"codigopostal"`
	PoblacionLocalidad               string `json:"poblacion_localidad"`
	PoblacionMunicipio               string `json:"poblacion_municipio"`
	PoblacionProvincia               string `json:"poblacion_provincia"`
	CoordenadasLatitud               Number `json:"coordenadas_latitud"`
	CoordenadasLongitud              Number `json:"coordenadas_longitud"`
	TipoMonumento                    string `json:"tipomonumento"`
	TipoConstruccion                 string `json:"tipoconstruccion"`
	Clasificacion                    string `json:"clasificacion"`
	PeriodoHistorico                 string `json:"periodohistorico"`
}

// Value holds a scalar that the source encodes inconsistently as a JSON
// number or string. The zero value means absent.
type Value struct {
	raw   string
	valid bool
}

func StringValue(s string) Value { return Value{raw: s, valid: true} }

// UnmarshalJSON never fails: values that are neither strings nor numbers
// decode as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*v = Value{raw: s, valid: true}
		}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Value{raw: n.String(), valid: true}
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

func (v Value) Present() bool { return v.valid }

func (v Value) String() string { return v.raw }

// Int parses the value as an integer. Decimal encodings with a zero
// fraction ("123.0") are accepted.
func (v Value) Int() (int, bool) {
	if !v.valid {
		return 0, false
	}
	if n, err := strconv.Atoi(v.raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v.raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// Number holds a JSON number. Anything else, strings included, decodes as
// absent.
type Number struct {
	v     float64
	valid bool
}

func FloatValue(f float64) Number { return Number{v: f, valid: true} }

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number{v: f, valid: true}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.v)
}

func (n Number) Float() (float64, bool) { return n.v, n.valid }

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
