package entities

// SpecialtyTag is a canonical specialty identifier such as "cardiology".
type SpecialtyTag string

// ClinicSource records which pipeline step produced a clinic.
type ClinicSource string

const (
	SourceLLMPick  ClinicSource = "llm_pick"
	SourceRegistry ClinicSource = "registry"
	SourceExternal ClinicSource = "external"
)

// ClinicRecord represents one physical clinic resolved for a query.
type ClinicRecord struct {
	Name        string       `json:"name"`
	Specialty   string       `json:"specialty,omitempty"`
	Address     string       `json:"address"`
	AddressKey  string       `json:"normalized_address_key,omitempty"`
	Lat         *float64     `json:"lat,omitempty"`
	Lng         *float64     `json:"lng,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	DistanceM   *int         `json:"distance_m,omitempty"`
	MapURL      string       `json:"map_url,omitempty"`
	Rating      *float64     `json:"rating,omitempty"`
	PlaceID     string       `json:"place_id,omitempty"`
	Specialties []string     `json:"specialties,omitempty"`
	NeedGeo     bool         `json:"need_geo,omitempty"`
	Source      ClinicSource `json:"source,omitempty"`
}

// HasCoordinates reports whether both lat and lng are known.
func (c *ClinicRecord) HasCoordinates() bool {
	return c.Lat != nil && c.Lng != nil
}

// SetCoordinates fills lat/lng.
func (c *ClinicRecord) SetCoordinates(lat, lng float64) {
	c.Lat = &lat
	c.Lng = &lng
}

// Clone returns a copy that can be mutated without affecting c.
func (c *ClinicRecord) Clone() *ClinicRecord {
	out := *c
	if c.Specialties != nil {
		out.Specialties = append([]string(nil), c.Specialties...)
	}
	return &out
}

// TriagedTag is one scored specialty produced by triage.
type TriagedTag struct {
	Tag   SpecialtyTag `json:"tag"`
	Score float64      `json:"score"`
}

// TagClinics is the clinic list resolved for a single tag.
type TagClinics struct {
	Tag     SpecialtyTag    `json:"tag"`
	Clinics []*ClinicRecord `json:"clinics"`
}

// Recommendation is the result of one clinic selection run. Entries follow
// the order of the requested tags.
type Recommendation struct {
	RunID     string       `json:"run_id"`
	Location  string       `json:"location"`
	CenterLat float64      `json:"center_lat"`
	CenterLng float64      `json:"center_lng"`
	Entries   []TagClinics `json:"entries"`
}

// ByTag returns the clinics resolved for tag, or nil.
func (r *Recommendation) ByTag(tag SpecialtyTag) []*ClinicRecord {
	for _, e := range r.Entries {
		if e.Tag == tag {
			return e.Clinics
		}
	}
	return nil
}

// Tags returns the tags in result order.
func (r *Recommendation) Tags() []SpecialtyTag {
	tags := make([]SpecialtyTag, 0, len(r.Entries))
	for _, e := range r.Entries {
		tags = append(tags, e.Tag)
	}
	return tags
}
