package geo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Place is a search result.
type Place struct {
	DisplayName string     `json:"display_name"`
	Position    Coordinate `json:"position"`
}

// Geocoder resolves coordinates to addresses and back.
type Geocoder struct {
	f *fetcher
}

// NewGeocoder creates a Geocoder for a Nominatim-compatible service.
func NewGeocoder(baseURL string, opts ...Option) *Geocoder {
	return &Geocoder{f: newFetcher(baseURL, opts)}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse returns the formatted address at c.
func (g *Geocoder) Reverse(ctx context.Context, c Coordinate) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))

	var out reverseResponse
	if err := g.f.getJSON(ctx, "reverse", "/reverse?"+q.Encode(), &out); err != nil {
		return "", err
	}
	if out.Error != "" || out.DisplayName == "" {
		return "", fmt.Errorf("%w: %s", ErrNoResult, c)
	}
	return out.DisplayName, nil
}

type searchResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search returns up to limit places matching query.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrNoResult)
	}
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var raw []searchResult
	if err := g.f.getJSON(ctx, "search", "/search?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		places = append(places, Place{DisplayName: r.DisplayName, Position: Coordinate{Lat: lat, Lon: lon}})
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoResult, query)
	}
	return places, nil
}
