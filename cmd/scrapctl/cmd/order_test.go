package cmd

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
	"github.com/Raj-venom/scrap-dai-client/internal/draft"
	"github.com/Raj-venom/scrap-dai-client/internal/geo"
)

func testCatalog() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Category{
		{ID: "metal", Name: "Metal", Scraps: []catalog.Scrap{{ID: "steel", Name: "Steel", PricePerKg: 45}}},
		{ID: "paper", Name: "Paper", Scraps: []catalog.Scrap{{ID: "cardboard", Name: "Cardboard", PricePerKg: 12.5}}},
	}, time.Now())
}

func TestCheckItemsInMaterials(t *testing.T) {
	snap := testCatalog()
	d := draft.New(draft.WithCatalog(snap))
	d.SetMaterials([]string{"metal"})

	require.NoError(t, applyItems(d, []string{"steel=2"}))
	assert.NoError(t, checkItemsInMaterials(snap, d))

	require.NoError(t, applyItems(d, []string{"cardboard"}))
	err := checkItemsInMaterials(snap, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not selected")

	require.NoError(t, applyItems(d, []string{"gold=1"}))
	err = checkItemsInMaterials(snap, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scrap")
}

func TestSlotListNamesEverySlot(t *testing.T) {
	list := slotList()
	for _, s := range draft.TimeSlots {
		assert.Contains(t, list, string(s))
	}
	assert.NotContains(t, list, string(draft.TimeSlotPlaceholder))
}

func TestLineSource(t *testing.T) {
	src := newLineSource(strings.NewReader("27.7172,85.3240\n\n  27.6710, 85.3240 \nbogus\n"))
	ctx := context.Background()

	p, err := src.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 27.7172, Lon: 85.324}, p)

	p, err = src.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 27.671, Lon: 85.324}, p)

	_, err = src.Position(ctx)
	assert.Error(t, err)

	_, err = src.Position(ctx)
	assert.ErrorIs(t, err, io.EOF)
	_, err = src.Position(ctx)
	assert.ErrorIs(t, err, io.EOF, "end of input is sticky")
}

func TestLineSourceHonoursContext(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	src := newLineSource(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Position(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLineSourceCloseStopsReader(t *testing.T) {
	src := newLineSource(strings.NewReader("27.7172,85.3240\n27.6710,85.3240\n"))

	// The reader is now blocked handing over the first line.
	src.Close()
	src.Close()

	select {
	case <-src.stopped:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine still running after Close")
	}
	_, err := src.Position(context.Background())
	assert.Error(t, err)
}

func TestHelpExamplesUseNoFixedDate(t *testing.T) {
	for _, long := range []string{rootCmd.Long, orderCreateCmd.Long} {
		assert.NotRegexp(t, `--date \d{4}-\d{2}-\d{2}`, long)
	}
}
