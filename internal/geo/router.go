package geo

import (
	"context"
	"fmt"
	"time"
)

// Route is a driving route.
type Route struct {
	// Distance in meters.
	Distance float64
	Duration time.Duration
	Path     []Coordinate
}

// Router computes driving routes.
type Router struct {
	f *fetcher
}

// NewRouter creates a Router for an OSRM-compatible service.
func NewRouter(baseURL string, opts ...Option) *Router {
	return &Router{f: newFetcher(baseURL, opts)}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			// GeoJSON positions are [lon, lat].
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the fastest driving route from one point to another.
func (r *Router) Route(ctx context.Context, from, to Coordinate) (*Route, error) {
	path := fmt.Sprintf("/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		from.Lon, from.Lat, to.Lon, to.Lat)

	var out osrmResponse
	if err := r.f.getJSON(ctx, "route", path, &out); err != nil {
		return nil, err
	}
	if out.Code != "Ok" {
		return nil, fmt.Errorf("%w: route %s: %s", ErrUpstream, out.Code, out.Message)
	}
	if len(out.Routes) == 0 {
		return nil, fmt.Errorf("%w: no route from %s to %s", ErrNoResult, from, to)
	}

	best := out.Routes[0]
	route := &Route{
		Distance: best.Distance,
		Duration: time.Duration(best.Duration * float64(time.Second)),
		Path:     make([]Coordinate, 0, len(best.Geometry.Coordinates)),
	}
	for _, pos := range best.Geometry.Coordinates {
		if len(pos) < 2 {
			continue
		}
		route.Path = append(route.Path, Coordinate{Lat: pos[1], Lon: pos[0]})
	}
	return route, nil
}
