package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicfinder/internal/adapters/dataset"
	"github.com/zatekoja/clinicfinder/internal/adapters/mapping"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
)

type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, req providers.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockGeolocationProvider struct {
	mock.Mock
}

func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) ([]providers.GeocodeResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.GeocodeResult), args.Error(1)
}

func (m *MockGeolocationProvider) TextSearch(ctx context.Context, query string, radiusMeters, limit int) ([]providers.Place, error) {
	args := m.Called(ctx, query, radiusMeters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.Place), args.Error(1)
}

func (m *MockGeolocationProvider) Details(ctx context.Context, placeID string) (*providers.PlaceDetails, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.PlaceDetails), args.Error(1)
}

const (
	shulinLat = 24.9907
	shulinLng = 121.4202
)

// testClinicsCSV uses English addresses so "Shulin District" works as a
// location keyword.
const testClinicsCSV = `clinic_name,specialties,address,lat,lng,phone,note
Shulin Heart Clinic,心臟內科,"No. 10, Baoan St., Shulin District, New Taipei City",24.9910,121.4210,02-2681-0001,keep me
Anxin Cardiology,心臟內科,"No. 5, Sec. 2, Zhongshan Rd., Shulin District, New Taipei City",24.9950,121.4250,02-2681-0002,
Banqiao Heart Center,心臟內科,"No. 1, Sec. 1, Wenhua Rd., Banqiao District, New Taipei City",25.0130,121.4620,02-2960-0003,
Shulin ENT,耳鼻喉科,"No. 100, Zhongzheng Rd., Shulin District, New Taipei City",,,02-2681-0004,
Far Cardiology,心臟內科,"No. 9, Far Rd., Shulin District, New Taipei City",24.5000,121.0000,,
`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testZH2EN() *mapping.Table {
	return mapping.NewTable("", map[string]string{
		"心臟內科": "cardiology",
		"耳鼻喉科": "ent",
	})
}

func newTestTagMapper(llm providers.ChatCompleter, typesPath string) *TagMapper {
	keywords := mapping.NewTable("", map[string]string{
		"cardiology": "心臟內科",
		"ent":        "耳鼻喉科",
	})
	types := mapping.NewTable(typesPath, map[string]string{
		"doctor": "醫師",
		"health": "醫療",
	})
	return NewTagMapper(keywords, types, llm, zerolog.Nop())
}

func newTestRegistry(t *testing.T, csv string, geo providers.GeolocationProvider) (*ClinicRegistry, string) {
	t.Helper()
	path := writeTestFile(t, "clinics.csv", csv)
	registry := NewClinicRegistry(dataset.NewCSVRepository(path), testZH2EN(), geo, zerolog.Nop())
	require.NoError(t, registry.Load(context.Background()))
	return registry, path
}

func floatPtr(v float64) *float64 {
	return &v
}
