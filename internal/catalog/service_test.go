package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowerhall/monumentd/internal/dbopen"
	"github.com/bowerhall/monumentd/internal/facets"
	"github.com/bowerhall/monumentd/internal/images"
	"github.com/bowerhall/monumentd/internal/monument"
	"github.com/bowerhall/monumentd/internal/store"
)

type memImages map[int][]byte

func (m memImages) Get(_ context.Context, id int) ([]byte, error) {
	data, ok := m[id]
	if !ok {
		return nil, images.ErrNotFound
	}
	return data, nil
}

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()

	db, err := dbopen.Open(dbopen.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st, err := store.Open(db)
	require.NoError(t, err)
	fx, err := facets.Open(db)
	require.NoError(t, err)

	batch := []monument.Monument{
		{
			ID:                1,
			Name:              "Catedral de León",
			Province:          "León",
			Location:          &monument.Location{Latitude: 42.5994, Longitude: -5.5669},
			MonumentType:      "Catedrales",
			ConstructionTypes: []string{"Catedrales"},
			HistoricalPeriods: []string{"Gótico"},
			HasImage:          true,
		},
		{
			ID:                2,
			Name:              "Basílica de San Isidoro",
			Province:          "León",
			Location:          &monument.Location{Latitude: 42.6006, Longitude: -5.5709},
			MonumentType:      "Iglesias y Ermitas",
			ConstructionTypes: []string{"Basílicas", "Iglesias"},
			HistoricalPeriods: []string{"Románico", "Gótico"},
		},
		{
			ID:                3,
			Name:              "Catedral de Burgos",
			Province:          "Burgos",
			Location:          &monument.Location{Latitude: 42.3405, Longitude: -3.7044},
			MonumentType:      "Catedrales",
			ConstructionTypes: []string{"Catedrales"},
		},
		{ID: 4, Name: "Sin ubicación", Province: "Soria"},
	}

	_, err = st.Commit(ctx, batch)
	require.NoError(t, err)
	_, err = fx.MergeBatch(ctx, batch)
	require.NoError(t, err)

	return New(st, fx, memImages{1: {0xff, 0xd8}})
}

func ids(ms []monument.Monument) []int {
	out := make([]int, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestAllAndByID(t *testing.T) {
	s := newService(t)

	assert.Equal(t, []int{1, 2, 3, 4}, ids(s.All()))
	assert.Equal(t, 4, s.Count())

	m, err := s.ByID(3)
	require.NoError(t, err)
	assert.Equal(t, "Catedral de Burgos", m.Name)

	_, err = s.ByID(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestByField(t *testing.T) {
	s := newService(t)

	got, err := s.ByField(monument.FieldProvince, "león", true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(got))

	got, err = s.ByField(monument.FieldProvince, "león", false)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ByField(monument.FieldHistoricalPeriod, "gótico", true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(got))

	_, err = s.ByField("height", "10", true)
	assert.ErrorIs(t, err, monument.ErrUnknownField)
}

func TestNearby(t *testing.T) {
	s := newService(t)

	assert.Equal(t, []int{1, 2}, ids(s.Nearby(42.5987, -5.5671, 5)))
	assert.Equal(t, []int{1, 2, 3}, ids(s.Nearby(42.5987, -5.5671, 200)))
	assert.Empty(t, s.Nearby(40.4168, -3.7038, 10))
}

func TestFacetValues(t *testing.T) {
	s := newService(t)

	got, err := s.FacetValues(context.Background(), facets.Province)
	require.NoError(t, err)
	assert.Equal(t, []string{"Burgos", "León", "Soria"}, got)
}

func TestImageBytes(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	data, err := s.ImageBytes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)

	_, err = s.ImageBytes(ctx, 2)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.ImageBytes(ctx, 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}
