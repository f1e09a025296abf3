package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/harborops/terminal-core/internal/models"
)

// YardLayout is the terminal-configuration file describing the yard grid.
// Each zone entry expands into block x row x tier locations, e.g.
//
//	[[zone]]
//	code = "NORTE"
//	blocks = ["A", "B"]
//	rows = 10
//	tiers = 4
//	location_type = "CONTAINER"
//	capacity_teu = 2
type YardLayout struct {
	Zones []ZoneLayout `toml:"zone"`
}

type ZoneLayout struct {
	Code         string   `toml:"code"`
	Blocks       []string `toml:"blocks"`
	Rows         int      `toml:"rows"`
	Tiers        int      `toml:"tiers"`
	LocationType string   `toml:"location_type"`
	CapacityTEU  int      `toml:"capacity_teu"`
}

// LoadYardLayout parses the layout file.
func LoadYardLayout(path string) (YardLayout, error) {
	var layout YardLayout
	if _, err := toml.DecodeFile(path, &layout); err != nil {
		return YardLayout{}, fmt.Errorf("parse yard layout %s: %w", path, err)
	}
	for i, z := range layout.Zones {
		if z.Code == "" || len(z.Blocks) == 0 || z.Rows <= 0 || z.Tiers <= 0 {
			return YardLayout{}, fmt.Errorf("yard layout zone %d is incomplete", i)
		}
	}
	return layout, nil
}

// Locations expands the layout grid into seedable yard locations, all active
// and unoccupied.
func (l YardLayout) Locations() []models.YardLocation {
	var out []models.YardLocation
	for _, z := range l.Zones {
		locationType := z.LocationType
		if locationType == "" {
			locationType = "CONTAINER"
		}
		capacity := z.CapacityTEU
		if capacity <= 0 {
			capacity = 1
		}
		for _, block := range z.Blocks {
			for row := 1; row <= z.Rows; row++ {
				for tier := 1; tier <= z.Tiers; tier++ {
					out = append(out, models.YardLocation{
						ID:           uuid.New(),
						Zone:         z.Code,
						Block:        block,
						Row:          row,
						Tier:         tier,
						LocationType: locationType,
						CapacityTEU:  capacity,
						Active:       true,
					})
				}
			}
		}
	}
	return out
}
