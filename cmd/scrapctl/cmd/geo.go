package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raj-venom/scrap-dai-client/internal/geo"
)

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Addresses, routes and live pickup tracking",
}

var geoReverseCmd = &cobra.Command{
	Use:   "reverse <lat,lon>",
	Short: "Resolve coordinates to an address",
	Args:  cobra.ExactArgs(1),
	RunE:  runGeoReverse,
}

var geoSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find places matching a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGeoSearch,
}

var geoRouteCmd = &cobra.Command{
	Use:   "route",
	Short: "Driving route between two points",
	RunE:  runGeoRoute,
}

var geoTrackCmd = &cobra.Command{
	Use:   "track",
	Short: "Follow a moving position towards a pickup",
	Long: `Track progress towards a destination. Positions are read from stdin,
one "lat,lon" per line, and polled at geo.poll_interval. Tracking stops on
arrival, at end of input or on interrupt.

Examples:
  gps-feed | scrapctl geo track --to 27.6710,85.3240
  gps-feed | scrapctl geo track --order 6630f0c2e4b0a1`,
	RunE: runGeoTrack,
}

func init() {
	geoSearchCmd.Flags().Int("limit", 5, "maximum number of results")

	geoRouteCmd.Flags().String("from", "", "start as lat,lon")
	geoRouteCmd.Flags().String("to", "", "destination as lat,lon")
	_ = geoRouteCmd.MarkFlagRequired("from")
	_ = geoRouteCmd.MarkFlagRequired("to")

	geoTrackCmd.Flags().String("to", "", "destination as lat,lon")
	geoTrackCmd.Flags().String("order", "", "use the pickup address of this order as destination")
	geoTrackCmd.MarkFlagsOneRequired("to", "order")
	geoTrackCmd.MarkFlagsMutuallyExclusive("to", "order")

	geoCmd.AddCommand(geoReverseCmd)
	geoCmd.AddCommand(geoSearchCmd)
	geoCmd.AddCommand(geoRouteCmd)
	geoCmd.AddCommand(geoTrackCmd)
	rootCmd.AddCommand(geoCmd)
}

func runGeoReverse(cmd *cobra.Command, args []string) error {
	pos, err := parseCoordinate(args[0])
	if err != nil {
		return err
	}

	addr, err := geo.NewGeocoder(cfg.Geo.GeocoderURL, geoOptions()...).Reverse(context.Background(), pos)
	if err != nil {
		return err
	}
	if ok, err := printStructured(map[string]interface{}{
		"position": pos,
		"address":  addr,
	}); ok {
		return err
	}
	fmt.Println(addr)
	return nil
}

func runGeoSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	places, err := geo.NewGeocoder(cfg.Geo.GeocoderURL, geoOptions()...).
		Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	if ok, err := printStructured(map[string]interface{}{
		"places": places,
		"count":  len(places),
	}); ok {
		return err
	}

	w := newTable()
	printTableHeader(w, "POSITION", "PLACE")
	for _, p := range places {
		fmt.Fprintf(w, "%s\t%s\n", p.Position, truncate(p.DisplayName, 70))
	}
	return w.Flush()
}

func runGeoRoute(cmd *cobra.Command, args []string) error {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	from, err := parseCoordinate(fromStr)
	if err != nil {
		return err
	}
	to, err := parseCoordinate(toStr)
	if err != nil {
		return err
	}

	route, err := geo.NewRouter(cfg.Geo.RouterURL, geoOptions()...).Route(context.Background(), from, to)
	if err != nil {
		return err
	}
	if ok, err := printStructured(route); ok {
		return err
	}
	fmt.Printf("Distance: %.1f km\n", route.Distance/1000)
	fmt.Printf("Duration: %s\n", route.Duration.Round(time.Second))
	fmt.Printf("Points:   %d\n", len(route.Path))
	return nil
}

func runGeoTrack(cmd *cobra.Command, args []string) error {
	toStr, _ := cmd.Flags().GetString("to")
	orderID, _ := cmd.Flags().GetString("order")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var dest geo.Coordinate
	if orderID != "" {
		a, err := newApp()
		if err != nil {
			return err
		}
		o, err := a.client.Orders.Get(ctx, orderID)
		_ = a.Close()
		if err != nil {
			return err
		}
		dest = geo.Coordinate{Lat: o.PickupAddress.Latitude, Lon: o.PickupAddress.Longitude}
		if dest == (geo.Coordinate{}) {
			return fmt.Errorf("order %s has no pickup coordinates", orderID)
		}
	} else {
		var err error
		if dest, err = parseCoordinate(toStr); err != nil {
			return err
		}
	}

	src := newLineSource(cmd.InOrStdin())
	defer src.Close()

	tracker := geo.NewTracker(
		src,
		geo.NewRouter(cfg.Geo.RouterURL, geoOptions()...),
		dest,
		geo.WithInterval(cfg.Geo.PollInterval),
		geo.WithTrackerLogger(logger),
	)
	updates, err := tracker.Start(ctx)
	if err != nil {
		return err
	}
	defer tracker.Stop()

	for u := range updates {
		if errors.Is(u.Err, io.EOF) {
			return nil
		}
		if jsonOut {
			if err := printJSON(trackView(u)); err != nil {
				return err
			}
			continue
		}
		switch {
		case u.Err != nil:
			fmt.Printf("%s %s\n", colorYellow("!"), u.Err)
		case u.Arrived:
			fmt.Printf("%s Arrived at %s\n", colorGreen("✓"), u.Position)
		default:
			fmt.Printf("%s  %.1f km, %s remaining\n", u.Position, u.Route.Distance/1000, u.Route.Duration.Round(time.Second))
		}
	}
	return nil
}

func trackView(u geo.Update) map[string]interface{} {
	v := map[string]interface{}{
		"position": u.Position,
		"arrived":  u.Arrived,
	}
	if u.Route != nil {
		v["distance_m"] = u.Route.Distance
		v["duration_s"] = u.Route.Duration.Seconds()
	}
	if u.Err != nil {
		v["error"] = u.Err.Error()
	}
	return v
}

// lineSource reads "lat,lon" positions, one per line. Close stops the
// reader goroutine once it is no longer blocked reading input.
type lineSource struct {
	lines   chan string
	errc    chan error
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newLineSource(r io.Reader) *lineSource {
	s := &lineSource{
		lines:   make(chan string),
		errc:    make(chan error, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.read(r)
	return s
}

func (s *lineSource) read(r io.Reader) {
	defer close(s.stopped)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.done:
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	s.errc <- err
}

func (s *lineSource) Position(ctx context.Context) (geo.Coordinate, error) {
	select {
	case line := <-s.lines:
		return parseCoordinate(line)
	case err := <-s.errc:
		// Keep reporting the terminal error.
		s.errc <- err
		return geo.Coordinate{}, err
	case <-s.done:
		return geo.Coordinate{}, io.EOF
	case <-ctx.Done():
		return geo.Coordinate{}, ctx.Err()
	}
}

// Close is safe to call more than once.
func (s *lineSource) Close() {
	s.once.Do(func() { close(s.done) })
}
