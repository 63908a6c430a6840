package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/adapters/dataset"
	"github.com/zatekoja/clinicfinder/internal/adapters/mapping"
	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/pkg/address"
	"github.com/zatekoja/clinicfinder/pkg/geo"
)

const (
	defaultRegistryRadiusKm = 8.0
	maxRegistryResults      = 5
)

// FindQuery selects registry clinics for one tag around a center point.
type FindQuery struct {
	Tag          entities.SpecialtyTag
	CenterLat    float64
	CenterLng    float64
	RadiusKm     float64
	LocationText string
	ForceGeocode bool
}

type registryEntry struct {
	record *entities.ClinicRecord
	row    map[string]string
}

// ClinicRegistry serves the local clinic dataset. Rows keep their original
// columns so that a coordinate write-back only touches lat and lng.
type ClinicRegistry struct {
	repo   *dataset.CSVRepository
	zh2en  *mapping.Table
	geo    providers.GeolocationProvider
	logger zerolog.Logger

	mu      sync.RWMutex
	table   *dataset.Table
	entries []registryEntry
}

// NewClinicRegistry creates a registry. Call Load before querying it.
func NewClinicRegistry(repo *dataset.CSVRepository, zh2en *mapping.Table, geo providers.GeolocationProvider, logger zerolog.Logger) *ClinicRegistry {
	return &ClinicRegistry{
		repo:   repo,
		zh2en:  zh2en,
		geo:    geo,
		logger: logger.With().Str("component", "clinic_registry").Logger(),
	}
}

// Load reads the dataset and translates specialties to canonical tags.
func (r *ClinicRegistry) Load(ctx context.Context) error {
	table, err := r.repo.Read()
	if err != nil {
		return err
	}

	// Legacy datasets name the column "specialties". It is read in place so
	// write-back keeps the original header.
	specialtyColumn := "specialty"
	if !table.HasColumn(specialtyColumn) && table.HasColumn("specialties") {
		specialtyColumn = "specialties"
	}
	for _, col := range []string{"lat", "lng", "phone"} {
		table.EnsureColumn(col)
	}

	entries := make([]registryEntry, 0, len(table.Rows))
	for _, row := range table.Rows {
		entries = append(entries, registryEntry{
			record: r.toRecord(row, specialtyColumn),
			row:    row,
		})
	}

	r.mu.Lock()
	r.table = table
	r.entries = entries
	r.mu.Unlock()

	r.logger.Info().Int("clinics", len(entries)).Str("path", r.repo.Path()).Msg("clinic registry loaded")
	return nil
}

func (r *ClinicRegistry) toRecord(row map[string]string, specialtyColumn string) *entities.ClinicRecord {
	name := strings.TrimSpace(row["clinic_name"])
	if name == "" {
		name = strings.TrimSpace(row["name"])
	}
	raw := strings.TrimSpace(row[specialtyColumn])
	addr := strings.TrimSpace(row["address"])

	rec := &entities.ClinicRecord{
		Name:       name,
		Specialty:  r.translate(raw),
		Address:    addr,
		AddressKey: address.Normalize(addr),
		Phone:      strings.TrimSpace(row["phone"]),
		Source:     entities.SourceRegistry,
	}
	if raw != "" {
		rec.Specialties = []string{raw}
	}
	lat, latOK := parseCoordinate(row["lat"])
	lng, lngOK := parseCoordinate(row["lng"])
	if latOK && lngOK {
		rec.SetCoordinates(lat, lng)
	}
	return rec
}

func (r *ClinicRegistry) translate(raw string) string {
	if r.zh2en != nil {
		if tag, ok := r.zh2en.Get(raw); ok && tag != "" {
			return tag
		}
	}
	return raw
}

// Records returns a copy of every loaded clinic.
func (r *ClinicRegistry) Records() []*entities.ClinicRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.ClinicRecord, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.record.Clone())
	}
	return out
}

// Candidates returns up to limit clinics for tag whose address contains one
// of the keywords extracted from location. An empty location does not filter.
func (r *ClinicRegistry) Candidates(tag entities.SpecialtyTag, location string, limit int) []*entities.ClinicRecord {
	pattern := address.KeywordPattern(address.ExtractKeywords(location))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.ClinicRecord
	for _, e := range r.entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if e.record.Specialty != string(tag) {
			continue
		}
		if pattern != nil && !pattern.MatchString(e.record.Address) {
			continue
		}
		out = append(out, e.record.Clone())
	}
	return out
}

// EnsureCoordinates geocodes every record without coordinates, filling it
// from the first result. Resolved coordinates are written back to the
// dataset so each address is geocoded at most once over the file's lifetime.
// Records that cannot be resolved are left untouched. It returns how many
// records were filled; the error reports a failed write-back only.
func (r *ClinicRegistry) EnsureCoordinates(ctx context.Context, records []*entities.ClinicRecord) (int, error) {
	resolved := make(map[string]*providers.GeocodeResult)
	filled := 0
	for _, rec := range records {
		if rec.HasCoordinates() || rec.Address == "" {
			continue
		}
		res, seen := resolved[rec.Address]
		if !seen {
			res = r.geocodeFirst(ctx, rec.Address)
			resolved[rec.Address] = res
		}
		if res == nil {
			continue
		}
		rec.SetCoordinates(res.Lat, res.Lng)
		filled++
	}
	if filled == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for _, e := range r.entries {
		if e.record.HasCoordinates() {
			continue
		}
		res := resolved[e.record.Address]
		if res == nil {
			continue
		}
		e.record.SetCoordinates(res.Lat, res.Lng)
		e.row["lat"] = formatCoordinate(res.Lat)
		e.row["lng"] = formatCoordinate(res.Lng)
		changed++
	}
	if changed == 0 || r.table == nil {
		return filled, nil
	}
	if err := r.repo.Write(r.table); err != nil {
		return filled, err
	}
	r.logger.Info().Int("rows", changed).Msg("wrote back geocoded coordinates")
	return filled, nil
}

func (r *ClinicRegistry) geocodeFirst(ctx context.Context, addr string) *providers.GeocodeResult {
	if r.geo == nil {
		return nil
	}
	results, err := r.geo.Geocode(ctx, addr)
	if err != nil {
		r.logger.Warn().Err(err).Str("address", addr).Msg("geocode failed")
		return nil
	}
	if len(results) == 0 {
		r.logger.Debug().Str("address", addr).Msg("geocode returned no results")
		return nil
	}
	first := results[0]
	return &first
}

// FindByTag returns at most five clinics for the tag within the radius of
// the center, nearest first. Clinics without coordinates are skipped unless
// ForceGeocode resolves them first.
func (r *ClinicRegistry) FindByTag(ctx context.Context, q FindQuery) []*entities.ClinicRecord {
	radiusKm := q.RadiusKm
	if radiusKm <= 0 {
		radiusKm = defaultRegistryRadiusKm
	}

	matches := r.Candidates(q.Tag, q.LocationText, 0)
	if len(matches) == 0 {
		return nil
	}
	if q.ForceGeocode {
		if _, err := r.EnsureCoordinates(ctx, matches); err != nil {
			r.logger.Warn().Err(err).Msg("coordinate write-back failed")
		}
	}

	maxMeters := radiusKm * 1000
	within := make([]*entities.ClinicRecord, 0, len(matches))
	for _, rec := range matches {
		if !rec.HasCoordinates() {
			continue
		}
		d := geo.DistanceMeters(q.CenterLat, q.CenterLng, *rec.Lat, *rec.Lng)
		if float64(d) > maxMeters {
			continue
		}
		rec.DistanceM = &d
		rec.MapURL = geo.MapURL(rec.PlaceID, rec.Lat, rec.Lng)
		within = append(within, rec)
	}

	sort.SliceStable(within, func(i, j int) bool {
		return *within[i].DistanceM < *within[j].DistanceM
	})
	if len(within) > maxRegistryResults {
		within = within[:maxRegistryResults]
	}
	return within
}

func parseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
