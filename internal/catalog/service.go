// Package catalog answers read queries over the harvested monuments.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/bowerhall/monumentd/internal/facets"
	"github.com/bowerhall/monumentd/internal/images"
	"github.com/bowerhall/monumentd/internal/monument"
)

// ErrNotFound is returned for unknown ids and missing images.
var ErrNotFound = errors.New("monument not found")

// Records is the snapshot read side of the record store.
type Records interface {
	All() []monument.Monument
	Get(pred monument.Predicate) []monument.Monument
	ByID(id int) (monument.Monument, bool)
	Count() int
}

// Facets reads facet values.
type Facets interface {
	Values(ctx context.Context, dim facets.Dimension) ([]string, error)
}

// Images reads cached image bytes.
type Images interface {
	Get(ctx context.Context, id int) ([]byte, error)
}

// Service serves read queries. It never writes.
type Service struct {
	records Records
	facets  Facets
	images  Images
}

// New returns a Service over the given stores.
func New(records Records, facets Facets, images Images) *Service {
	return &Service{records: records, facets: facets, images: images}
}

// All returns every served monument, ordered by id.
func (s *Service) All() []monument.Monument {
	return s.records.All()
}

// Count returns the number of served monuments.
func (s *Service) Count() int {
	return s.records.Count()
}

// ByID returns ErrNotFound for unknown ids.
func (s *Service) ByID(id int) (monument.Monument, error) {
	m, ok := s.records.ByID(id)
	if !ok {
		return monument.Monument{}, ErrNotFound
	}
	return m, nil
}

// ByField filters on one of the monument.Field* names. List fields match
// when any element equals value.
func (s *Service) ByField(field monument.Field, value string, caseInsensitive bool) ([]monument.Monument, error) {
	pred, err := monument.Match(field, value, caseInsensitive)
	if err != nil {
		return nil, err
	}
	return s.records.Get(pred), nil
}

// Nearby returns monuments with a location within km of (lat, lon).
func (s *Service) Nearby(lat, lon, km float64) []monument.Monument {
	return s.records.Get(monument.Within(monument.Location{Latitude: lat, Longitude: lon}, km))
}

// FacetValues returns the sorted values of one dimension.
func (s *Service) FacetValues(ctx context.Context, dim facets.Dimension) ([]string, error) {
	return s.facets.Values(ctx, dim)
}

// ImageBytes returns the cached image of a known monument. Unknown ids and
// monuments without an image both yield ErrNotFound.
func (s *Service) ImageBytes(ctx context.Context, id int) ([]byte, error) {
	if _, ok := s.records.ByID(id); !ok {
		return nil, ErrNotFound
	}

	data, err := s.images.Get(ctx, id)
	if errors.Is(err, images.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", id, err)
	}
	return data, nil
}
