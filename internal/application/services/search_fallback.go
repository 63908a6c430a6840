package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/pkg/address"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
	"github.com/zatekoja/clinicfinder/pkg/geo"
)

const (
	defaultClinicQualifier = "診所"
	maxExternalResults     = 5
)

// SearchRadiiMeters are tried in order until one returns results.
var SearchRadiiMeters = []int{2000, 4000, 8000}

// SearchFallback finds clinics through the external places search when the
// local dataset has too few.
type SearchFallback struct {
	geo       providers.GeolocationProvider
	mapper    *TagMapper
	index     *SpecialtyIndex
	qualifier string
	logger    zerolog.Logger
}

// NewSearchFallback creates the fallback. index may be nil.
func NewSearchFallback(geo providers.GeolocationProvider, mapper *TagMapper, index *SpecialtyIndex, qualifier string, logger zerolog.Logger) *SearchFallback {
	if strings.TrimSpace(qualifier) == "" {
		qualifier = defaultClinicQualifier
	}
	return &SearchFallback{
		geo:       geo,
		mapper:    mapper,
		index:     index,
		qualifier: qualifier,
		logger:    logger.With().Str("component", "search_fallback").Logger(),
	}
}

// Query builds the text search query for tag near location.
func (s *SearchFallback) Query(tag entities.SpecialtyTag, location string) string {
	q := s.mapper.ToKeyword(tag) + " " + s.qualifier
	if loc := strings.TrimSpace(location); loc != "" {
		q += " near " + loc
	}
	return q
}

// SearchOneTag searches with a widening radius and returns at most five
// clinics nearest first. No results is an empty slice, not an error; the
// error is set only when every attempt failed.
func (s *SearchFallback) SearchOneTag(ctx context.Context, tag entities.SpecialtyTag, location string, lat, lng float64) ([]*entities.ClinicRecord, error) {
	query := s.Query(tag, location)

	var (
		places   []providers.Place
		failures int
		lastErr  error
	)
	for _, radius := range SearchRadiiMeters {
		found, err := s.geo.TextSearch(ctx, query, radius, maxExternalResults)
		if err != nil {
			failures++
			lastErr = err
			s.logger.Warn().Err(err).Str("query", query).Int("radius", radius).Msg("places search failed")
			continue
		}
		s.logger.Debug().Str("query", query).Int("radius", radius).Int("results", len(found)).Msg("places search")
		if len(found) > 0 {
			places = found
			break
		}
	}
	if len(places) == 0 {
		if failures == len(SearchRadiiMeters) {
			return nil, apperrors.NewExternalError("places search failed at every radius", lastErr)
		}
		return []*entities.ClinicRecord{}, nil
	}

	clinics := make([]*entities.ClinicRecord, 0, len(places))
	seen := make(map[string]bool, len(places))
	for _, p := range places {
		if p.PlaceID != "" {
			if seen[p.PlaceID] {
				continue
			}
			seen[p.PlaceID] = true
		}
		clinics = append(clinics, s.toRecord(ctx, tag, p, lat, lng))
	}

	sort.SliceStable(clinics, func(i, j int) bool {
		return *clinics[i].DistanceM < *clinics[j].DistanceM
	})
	if len(clinics) > maxExternalResults {
		clinics = clinics[:maxExternalResults]
	}
	return clinics, nil
}

func (s *SearchFallback) toRecord(ctx context.Context, tag entities.SpecialtyTag, p providers.Place, lat, lng float64) *entities.ClinicRecord {
	d := geo.DistanceMeters(lat, lng, p.Lat, p.Lng)
	rec := &entities.ClinicRecord{
		Name:       p.Name,
		Specialty:  string(tag),
		Address:    p.FormattedAddress,
		AddressKey: address.Normalize(p.FormattedAddress),
		DistanceM:  &d,
		Rating:     p.Rating,
		PlaceID:    p.PlaceID,
		Source:     entities.SourceExternal,
	}
	rec.SetCoordinates(p.Lat, p.Lng)
	rec.MapURL = geo.MapURL(p.PlaceID, rec.Lat, rec.Lng)
	rec.Specialties = mergeLabels(s.mapper.MapPlaceTypes(ctx, p.Types), s.index.Lookup(rec.AddressKey))
	return rec
}

func mergeLabels(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, l := range list {
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
