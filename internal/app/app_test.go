package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/pkg/config"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	csvPath := write("clinics.csv", "clinic_name,specialty,address,lat,lng\n"+
		"樹林心臟科診所,心臟內科,新北市樹林區保安街一段1號,24.9907,121.4202\n"+
		"板橋耳鼻喉科,耳鼻喉科,新北市板橋區文化路一段2號,,\n")

	return &config.Config{
		Env: "test",
		Data: config.DataConfig{
			ClinicCSVPath:      csvPath,
			ZH2ENPath:          write("zh2en.yaml", "心臟內科: cardiology\n耳鼻喉科: ent\n"),
			TagMapPath:         write("tag_map.yaml", "cardiology: 心臟內科\nent: 耳鼻喉科\n"),
			TypeMapPath:        filepath.Join(dir, "type_map.yaml"),
			SpecialtyIndexPath: csvPath,
		},
		Cache:       config.CacheConfig{Backend: config.CacheBackendMemory, MemorySize: 16},
		Geolocation: config.GeolocationConfig{Provider: "mock"},
		Recommender: config.RecommenderConfig{MaxTags: 3, MaxClinics: 5, CandidateLimit: 30, RegistryRadiusKm: 8},
	}
}

func TestNew_WiresMockStack(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.LLM)
	assert.Nil(t, a.Triage)
	assert.NotNil(t, a.Evaluator)
	assert.Len(t, a.Registry.Records(), 2)
	assert.Equal(t, []string{"cardiology", "ent"}, a.Mapper.Vocabulary())

	rec, err := a.Recommender.SearchAllTags(context.Background(), []entities.SpecialtyTag{"cardiology"}, "樹林區", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"樹林心臟科診所"}, names(rec.ByTag("cardiology")))
}

func TestNew_BackfillWritesCoordinates(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zerolog.Nop(), Options{Workers: 2})
	require.NoError(t, err)
	defer a.Close()

	summary, err := a.Backfill.BackfillAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuccessCount)

	data, err := os.ReadFile(cfg.Data.ClinicCSVPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "2號,,")
}

func TestNew_MissingDatasetIsConfigurationError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.ClinicCSVPath = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(context.Background(), cfg, zerolog.Nop(), Options{})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func names(clinics []*entities.ClinicRecord) []string {
	out := make([]string, 0, len(clinics))
	for _, c := range clinics {
		out = append(out, c.Name)
	}
	return out
}
