package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Raj-venom/scrap-dai-client/internal/draft"
	"github.com/Raj-venom/scrap-dai-client/internal/geo"
)

// applyItems selects each "id" or "id=weight" entry on d. A bare id gets
// the default weight.
func applyItems(d *draft.Draft, items []string) error {
	weights := make(map[string]string, len(items))
	seen := make(map[string]bool, len(items))
	var bare []string
	for _, item := range items {
		id, weight, hasWeight := strings.Cut(item, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("invalid --item %q: missing scrap id", item)
		}
		if seen[id] {
			return fmt.Errorf("scrap %s given twice", id)
		}
		seen[id] = true
		if hasWeight {
			weights[id] = strings.TrimSpace(weight)
		} else {
			bare = append(bare, id)
		}
	}
	d.SetSubcategoryWeights(weights)
	for _, id := range bare {
		d.SelectSubcategory(id)
	}
	return nil
}

// parseCoordinate parses "lat,lon".
func parseCoordinate(s string) (geo.Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("invalid coordinate %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Coordinate{}, fmt.Errorf("invalid latitude in %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return geo.Coordinate{}, fmt.Errorf("invalid longitude in %q", s)
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}

func formatAmount(v float64) string {
	return "Rs. " + strconv.FormatFloat(v, 'f', 2, 64)
}
