package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zh2en.yaml")
	require.NoError(t, os.WriteFile(path, []byte("心臟內科: cardiology\n皮膚科 : dermatology\nempty:\n"), 0644))

	table, err := LoadTable(path)
	require.NoError(t, err)

	got, ok := table.Get("心臟內科")
	assert.True(t, ok)
	assert.Equal(t, "cardiology", got)

	got, ok = table.Get("皮膚科")
	assert.True(t, ok)
	assert.Equal(t, "dermatology", got)

	_, ok = table.Get("empty")
	assert.False(t, ok)
	assert.Equal(t, []string{"心臟內科", "皮膚科"}, table.Keys())
}

func TestLoadTable_MissingFileIsEmpty(t *testing.T) {
	table, err := LoadTable(filepath.Join(t.TempDir(), "type_map.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestLoadTable_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0644))

	_, err := LoadTable(path)
	assert.Error(t, err)
}

func TestTable_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "type_map.yaml")
	table, err := LoadTable(path)
	require.NoError(t, err)

	table.Set("dentist", "牙科")
	table.Set("doctor", "家醫科")
	require.NoError(t, table.Save())

	reloaded, err := LoadTable(path)
	require.NoError(t, err)
	got, ok := reloaded.Get("dentist")
	assert.True(t, ok)
	assert.Equal(t, "牙科", got)
	assert.Equal(t, 2, reloaded.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestNewTable_SaveWithoutPath(t *testing.T) {
	table := NewTable("", map[string]string{"a": "b"})
	assert.NoError(t, table.Save())
	v, _ := table.Get("a")
	assert.Equal(t, "b", v)
}
