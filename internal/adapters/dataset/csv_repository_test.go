package dataset

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clinics.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVRepository_Read(t *testing.T) {
	path := writeFile(t, "\xEF\xBB\xBFclinic_name,specialties,address,extra\n甲診所,心臟內科,新北市樹林區中山路1號,x\n乙診所,皮膚科,\"新北市樹林區, 保安街2號\"\n")

	table, err := NewCSVRepository(path).Read()
	require.NoError(t, err)

	assert.Equal(t, []string{"clinic_name", "specialties", "address", "extra"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "甲診所", table.Rows[0]["clinic_name"])
	assert.Equal(t, "x", table.Rows[0]["extra"])
	assert.Equal(t, "新北市樹林區, 保安街2號", table.Rows[1]["address"])
	assert.Equal(t, "", table.Rows[1]["extra"])
}

func TestCSVRepository_MissingFile(t *testing.T) {
	_, err := NewCSVRepository(filepath.Join(t.TempDir(), "none.csv")).Read()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestCSVRepository_WritePreservesUnknownColumns(t *testing.T) {
	path := writeFile(t, "name,specialty,address,note\n甲診所,cardiology,addr1,keep me\n")
	repo := NewCSVRepository(path)

	table, err := repo.Read()
	require.NoError(t, err)
	table.EnsureColumn("lat")
	table.EnsureColumn("lng")
	table.Rows[0]["lat"] = "24.99"
	table.Rows[0]["lng"] = "121.42"
	require.NoError(t, repo.Write(table))

	again, err := repo.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "specialty", "address", "note", "lat", "lng"}, again.Columns)
	assert.Equal(t, "keep me", again.Rows[0]["note"])
	assert.Equal(t, "24.99", again.Rows[0]["lat"])
}

func TestCSVRepository_ConcurrentWrites(t *testing.T) {
	path := writeFile(t, "name,address\n甲,a\n")
	repo := NewCSVRepository(path)
	table, err := repo.Read()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Write(table))
		}()
	}
	wg.Wait()

	again, err := repo.Read()
	require.NoError(t, err)
	assert.Len(t, again.Rows, 1)
}
