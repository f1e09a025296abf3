package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLayout(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yard.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYardLayout(t *testing.T) {
	path := writeLayout(t, `
[[zone]]
code = "NORTE"
blocks = ["A", "B"]
rows = 3
tiers = 2
location_type = "CONTAINER"
capacity_teu = 2

[[zone]]
code = "REEFER"
blocks = ["R"]
rows = 2
tiers = 1
location_type = "REEFER"
`)

	layout, err := LoadYardLayout(path)
	require.NoError(t, err)
	require.Len(t, layout.Zones, 2)

	locs := layout.Locations()
	// 2 blocks x 3 rows x 2 tiers + 1 block x 2 rows x 1 tier.
	assert.Len(t, locs, 14)

	codes := map[string]bool{}
	for _, loc := range locs {
		assert.True(t, loc.Active)
		codes[loc.Code()] = true
	}
	assert.True(t, codes["NORTE-A-01-1"])
	assert.True(t, codes["NORTE-B-03-2"])
	assert.True(t, codes["REEFER-R-02-1"])
}

func TestLoadYardLayoutDefaults(t *testing.T) {
	path := writeLayout(t, `
[[zone]]
code = "SUR"
blocks = ["C"]
rows = 1
tiers = 1
`)

	layout, err := LoadYardLayout(path)
	require.NoError(t, err)

	locs := layout.Locations()
	require.Len(t, locs, 1)
	assert.Equal(t, "CONTAINER", locs[0].LocationType)
	assert.Equal(t, 1, locs[0].CapacityTEU)
}

func TestLoadYardLayoutIncompleteZone(t *testing.T) {
	path := writeLayout(t, `
[[zone]]
code = "NORTE"
rows = 3
tiers = 2
`)

	_, err := LoadYardLayout(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestLoadYardLayoutMissingFile(t *testing.T) {
	_, err := LoadYardLayout(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
