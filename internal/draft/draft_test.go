package draft

import (
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
)

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Category{
		{
			ID:   "metal",
			Name: "Metal",
			Scraps: []catalog.Scrap{
				{ID: "steel", Name: "Steel", PricePerKg: 45},
				{ID: "copper", Name: "Copper", PricePerKg: 700},
			},
		},
		{
			ID:     "paper",
			Name:   "Paper",
			Scraps: []catalog.Scrap{{ID: "cardboard", Name: "Cardboard", PricePerKg: 12.5}},
		},
	}, time.Now())
}

var testNow = time.Date(2025, 4, 20, 15, 0, 0, 0, time.Local)

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

func newTestDraft() *Draft {
	return New(WithClock(fixedClock()), WithCatalog(testSnapshot()))
}

var kathmandu = Address{FormattedAddress: "Kathmandu", Latitude: 27.7172, Longitude: 85.3240}

func oneImage() []Image {
	return []Image{{LocalURI: "file:///tmp/a.jpg", MimeType: "image/jpeg"}}
}

// fillSubmittable walks the first four steps with valid input.
func fillSubmittable(t *testing.T, d *Draft) {
	t.Helper()
	d.SetMaterials([]string{"metal"})
	d.SetSubcategoryWeights(map[string]string{"steel": "3"})
	require.NoError(t, d.SetPickupDetails("2025-05-01", "7 AM - 9 AM", kathmandu))
	require.NoError(t, d.SetImages(oneImage()))
}

func TestDraft_ResetRoundTrip(t *testing.T) {
	d := newTestDraft()
	fillSubmittable(t, d)

	d.Reset()
	assert.False(t, d.IsStepComplete(StepMaterials))
	assert.Empty(t, d.SubcategoryWeights())
	assert.Empty(t, d.Images())
	date, slot, addr := d.Pickup()
	assert.Empty(t, date)
	assert.Empty(t, slot)
	assert.Equal(t, Address{}, addr)
	assert.NotNil(t, d.Catalog(), "reset keeps the catalog snapshot")

	d.SetMaterials([]string{"paper"})
	assert.True(t, d.IsStepComplete(StepMaterials))
}

func TestDraft_SetMaterialsReplaces(t *testing.T) {
	d := newTestDraft()
	d.SetMaterials([]string{"metal", "paper", "metal", " "})
	assert.Equal(t, []string{"metal", "paper"}, d.Materials())

	d.SetMaterials([]string{"paper"})
	assert.Equal(t, []string{"paper"}, d.Materials())

	d.SetMaterials(nil)
	assert.False(t, d.IsStepComplete(StepMaterials))
}

func TestDraft_SubcategoryGate(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]string
		want    bool
	}{
		{"empty selection", map[string]string{}, true},
		{"integer", map[string]string{"steel": "3"}, true},
		{"decimal", map[string]string{"steel": "2.5", "copper": "0.1"}, true},
		{"padded", map[string]string{"steel": " 4 "}, true},
		{"zero", map[string]string{"steel": "0"}, false},
		{"negative", map[string]string{"steel": "-1"}, false},
		{"letters", map[string]string{"steel": "abc"}, false},
		{"blank", map[string]string{"steel": ""}, false},
		{"nan", map[string]string{"steel": "NaN"}, false},
		{"inf", map[string]string{"steel": "Inf"}, false},
		{"one bad among good", map[string]string{"steel": "3", "copper": "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDraft()
			d.SetSubcategoryWeights(tt.weights)
			assert.Equal(t, tt.want, d.IsStepComplete(StepSubcategories))
		})
	}
}

func TestDraft_SubcategoryGateFlipsOnBadWeight(t *testing.T) {
	d := newTestDraft()
	d.SetSubcategoryWeights(map[string]string{"steel": "3", "copper": "1", "cardboard": "7"})
	require.True(t, d.IsStepComplete(StepSubcategories))

	w := d.SubcategoryWeights()
	w["copper"] = "1.2.3"
	d.SetSubcategoryWeights(w)
	assert.False(t, d.IsStepComplete(StepSubcategories))
}

func TestDraft_SelectDeselect(t *testing.T) {
	d := newTestDraft()
	d.SelectSubcategory("steel")
	assert.Equal(t, map[string]string{"steel": DefaultWeight}, d.SubcategoryWeights())

	d.SetSubcategoryWeights(map[string]string{"steel": "5"})
	d.SelectSubcategory("steel")
	assert.Equal(t, "5", d.SubcategoryWeights()["steel"], "reselect keeps weight")

	d.DeselectSubcategory("steel")
	assert.Empty(t, d.SubcategoryWeights())
}

func TestDraft_SubcategoryWeightsCopy(t *testing.T) {
	d := newTestDraft()
	d.SetSubcategoryWeights(map[string]string{"steel": "3"})
	w := d.SubcategoryWeights()
	w["copper"] = "1"
	assert.Len(t, d.SubcategoryWeights(), 1)
}

func TestDraft_SetPickupDetails(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		slot    TimeSlot
		addr    Address
		wantErr error
	}{
		{"future", "2025-05-01", "7 AM - 9 AM", kathmandu, nil},
		{"today", "2025-04-20", "3 PM - 5 PM", kathmandu, nil},
		{"yesterday", "2025-04-19", "7 AM - 9 AM", kathmandu, ErrPickupDateInPast},
		{"bad date", "01/05/2025", "7 AM - 9 AM", kathmandu, ErrInvalidPickupDate},
		{"unknown slot", "2025-05-01", "midnight", kathmandu, ErrUnknownTimeSlot},
		{"placeholder", "2025-05-01", TimeSlotPlaceholder, kathmandu, nil},
		{"latitude out of range", "2025-05-01", "7 AM - 9 AM", Address{FormattedAddress: "x", Latitude: 91}, ErrInvalidAddress},
		{"longitude out of range", "2025-05-01", "7 AM - 9 AM", Address{FormattedAddress: "x", Longitude: -181}, ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDraft()
			err := d.SetPickupDetails(tt.date, tt.slot, tt.addr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDraft_PickupGate(t *testing.T) {
	d := newTestDraft()
	assert.False(t, d.IsStepComplete(StepPickup))

	require.NoError(t, d.SetPickupDetails("2025-05-01", TimeSlotPlaceholder, kathmandu))
	assert.False(t, d.IsStepComplete(StepPickup), "placeholder slot is incomplete")

	require.NoError(t, d.SetPickupDetails("2025-05-01", "9 AM - 11 AM", Address{FormattedAddress: "  "}))
	assert.False(t, d.IsStepComplete(StepPickup), "blank address is incomplete")

	require.NoError(t, d.SetPickupDetails("2025-05-01", "9 AM - 11 AM", kathmandu))
	assert.True(t, d.IsStepComplete(StepPickup))
}

func TestDraft_RejectedPickupKeepsPrevious(t *testing.T) {
	d := newTestDraft()
	require.NoError(t, d.SetPickupDetails("2025-05-01", "7 AM - 9 AM", kathmandu))
	require.Error(t, d.SetPickupDetails("2020-01-01", "7 AM - 9 AM", kathmandu))

	date, _, _ := d.Pickup()
	assert.Equal(t, "2025-05-01", date)
}

func TestDraft_SetImages(t *testing.T) {
	d := newTestDraft()

	require.NoError(t, d.SetImages(oneImage()))
	imgs := d.Images()
	require.Len(t, imgs, 1)
	id, err := ulid.Parse(imgs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), ulid.Time(id.Time()).UnixMilli(), "id is stamped with the draft clock")
	assert.True(t, d.IsStepComplete(StepImages))

	require.NoError(t, d.SetImages([]Image{{LocalURI: "b.png", MimeType: "image/png", ID: "keep"}}))
	assert.Equal(t, "keep", d.Images()[0].ID)

	five := make([]Image, MaxImages+1)
	for i := range five {
		five[i] = Image{LocalURI: "x.jpg", MimeType: "image/jpeg"}
	}
	assert.ErrorIs(t, d.SetImages(five), ErrTooManyImages)
	assert.Len(t, d.Images(), 1, "rejected set leaves previous images")

	assert.ErrorIs(t, d.SetImages([]Image{{LocalURI: "a.pdf", MimeType: "application/pdf"}}), ErrInvalidImage)
	assert.ErrorIs(t, d.SetImages([]Image{{MimeType: "image/jpeg"}}), ErrInvalidImage)

	require.NoError(t, d.SetImages(nil))
	assert.False(t, d.IsStepComplete(StepImages))
}

func TestDraft_CanSubmit(t *testing.T) {
	d := newTestDraft()
	assert.False(t, d.CanSubmit())

	fillSubmittable(t, d)
	assert.True(t, d.CanSubmit())

	d.SetSubcategoryWeights(nil)
	assert.True(t, d.IsStepComplete(StepSubcategories))
	assert.False(t, d.CanSubmit(), "at least one subcategory is required")
}

func TestDraft_BuildSubmissionPayloadScenario(t *testing.T) {
	d := newTestDraft()

	d.SetMaterials([]string{"metal"})
	require.True(t, d.IsStepComplete(StepMaterials))
	d.SetSubcategoryWeights(map[string]string{"steel": "3"})
	require.True(t, d.IsStepComplete(StepSubcategories))
	require.NoError(t, d.SetPickupDetails("2025-05-01", "7 AM - 9 AM", Address{FormattedAddress: "Kathmandu"}))
	require.True(t, d.IsStepComplete(StepPickup))
	require.NoError(t, d.SetImages(oneImage()))
	require.True(t, d.IsStepComplete(StepImages))

	p, err := d.BuildSubmissionPayload()
	require.NoError(t, err)
	assert.Equal(t, []OrderItem{{Scrap: "steel", Weight: 3, Amount: 135}}, p.OrderItems)
	assert.Equal(t, 135.0, p.EstimatedAmount)
	assert.Equal(t, "2025-05-01", p.PickUpDate)
	assert.Equal(t, TimeSlot("7 AM - 9 AM"), p.PickUpTime)
	assert.Equal(t, PaymentCash, p.PaymentMethod)
	assert.Len(t, p.Images, 1)
}

func TestDraft_BuildSubmissionPayloadPricing(t *testing.T) {
	d := newTestDraft()
	fillSubmittable(t, d)
	d.SetSubcategoryWeights(map[string]string{"steel": "2.5", "cardboard": "4"})

	p, err := d.BuildSubmissionPayload()
	require.NoError(t, err)
	assert.Equal(t, []OrderItem{
		{Scrap: "cardboard", Weight: 4, Amount: 50},
		{Scrap: "steel", Weight: 2.5, Amount: 112.5},
	}, p.OrderItems)
	assert.Equal(t, 162.5, p.EstimatedAmount)
	assert.Equal(t, "162.5", p.EstimatedAmountString())

	items, err := p.OrderItemsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"scrap":"cardboard","weight":4,"amount":50},{"scrap":"steel","weight":2.5,"amount":112.5}]`, items)

	addr, err := p.PickupAddressJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"formattedAddress":"Kathmandu","latitude":27.7172,"longitude":85.324}`, addr)
}

func TestDraft_BuildSubmissionPayloadMissingCatalogEntry(t *testing.T) {
	d := newTestDraft()
	fillSubmittable(t, d)
	d.SetSubcategoryWeights(map[string]string{"steel": "1", "unobtainium": "1"})

	_, err := d.BuildSubmissionPayload()
	require.ErrorIs(t, err, ErrMissingCatalogEntry)

	var cerr *CatalogError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "unobtainium", cerr.SubcategoryID)
}

func TestDraft_BuildSubmissionPayloadWithoutCatalog(t *testing.T) {
	d := New(WithClock(fixedClock()))
	fillSubmittable(t, d)

	_, err := d.BuildSubmissionPayload()
	assert.ErrorIs(t, err, ErrMissingCatalogEntry)
}

func TestDraft_BuildSubmissionPayloadIncomplete(t *testing.T) {
	d := newTestDraft()
	d.SetMaterials([]string{"metal"})

	_, err := d.BuildSubmissionPayload()
	require.ErrorIs(t, err, ErrValidationIncomplete)

	var ierr *IncompleteError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, StepPickup, ierr.Step)
}

func TestWeightOrDefault(t *testing.T) {
	assert.Equal(t, 3.0, WeightOrDefault("3"))
	assert.Equal(t, 1.0, WeightOrDefault("abc"))
	assert.Equal(t, 1.0, WeightOrDefault("-2"))
}

func TestParseTimeSlot(t *testing.T) {
	slot, err := ParseTimeSlot(" 1 PM - 3 PM ")
	require.NoError(t, err)
	assert.Equal(t, TimeSlot("1 PM - 3 PM"), slot)

	_, err = ParseTimeSlot("noon")
	assert.ErrorIs(t, err, ErrUnknownTimeSlot)
}

func TestWizard_Navigation(t *testing.T) {
	d := newTestDraft()
	d.SetMaterials([]string{"stale"})
	w := NewWizard(d)
	assert.Empty(t, d.Materials(), "starting a flow resets the draft")
	assert.Equal(t, StepMaterials, w.Current())

	assert.ErrorIs(t, w.Prev(), ErrNoPreviousStep)
	assert.ErrorIs(t, w.Next(), ErrValidationIncomplete)

	d.SetMaterials([]string{"metal"})
	require.NoError(t, w.Next())
	d.SelectSubcategory("steel")
	require.NoError(t, w.Next())
	assert.Equal(t, StepPickup, w.Current())
	assert.ErrorIs(t, w.Next(), ErrValidationIncomplete)

	require.NoError(t, w.Prev())
	assert.Equal(t, StepSubcategories, w.Current())
	require.NoError(t, w.Next())

	require.NoError(t, d.SetPickupDetails("2025-05-01", "11 AM - 1 PM", kathmandu))
	require.NoError(t, w.Next())
	require.NoError(t, d.SetImages(oneImage()))
	require.NoError(t, w.Next())
	assert.Equal(t, StepConfirm, w.Current())
	assert.ErrorIs(t, w.Next(), ErrNoNextStep)
	assert.True(t, d.CanSubmit())

	w.Abandon()
	assert.Equal(t, StepMaterials, w.Current())
	assert.False(t, d.CanSubmit())
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "pickup", StepPickup.String())
	assert.Equal(t, "step(9)", Step(9).String())
	assert.False(t, newTestDraft().IsStepComplete(Step(9)))
}
