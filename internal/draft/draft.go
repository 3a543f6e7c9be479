// Package draft accumulates an order across the five steps of the
// order-creation wizard and turns it into a submission payload.
//
// A Draft is owned by one wizard flow. It is not safe for concurrent use and
// is never persisted; call Reset at flow entry and after submission.
package draft

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
)

// MaxImages is the maximum number of scrap images on one order.
const MaxImages = 4

// DateLayout is the ISO-8601 calendar date format of PickupDate.
const DateLayout = "2006-01-02"

// TimeSlot is a pickup window.
type TimeSlot string

// TimeSlotPlaceholder is shown before the user picks a slot.
const TimeSlotPlaceholder TimeSlot = "Select Time"

// TimeSlots lists the pickup windows in display order.
var TimeSlots = []TimeSlot{
	"7 AM - 9 AM",
	"9 AM - 11 AM",
	"11 AM - 1 PM",
	"1 PM - 3 PM",
	"3 PM - 5 PM",
}

// ParseTimeSlot returns the slot matching s exactly, or the placeholder.
func ParseTimeSlot(s string) (TimeSlot, error) {
	slot := TimeSlot(strings.TrimSpace(s))
	if slot == TimeSlotPlaceholder || slot.Valid() {
		return slot, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTimeSlot, s)
}

// Valid reports whether t is one of TimeSlots.
func (t TimeSlot) Valid() bool {
	for _, s := range TimeSlots {
		if s == t {
			return true
		}
	}
	return false
}

// PaymentMethod is how the seller is paid at pickup.
type PaymentMethod string

const PaymentCash PaymentMethod = "CASH"

// Address is the pickup location.
type Address struct {
	FormattedAddress string  `json:"formattedAddress" validate:"max=512"`
	Latitude         float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude        float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Image is a local scrap photo attached to the order.
type Image struct {
	LocalURI string `json:"localUri" validate:"required"`
	MimeType string `json:"mimeType" validate:"required,startswith=image/"`
	ID       string `json:"id"`
}

// Draft is the in-progress order.
type Draft struct {
	materials  map[string]struct{}
	weights    map[string]string
	pickupDate string
	pickupTime TimeSlot
	address    Address
	images     []Image
	payment    PaymentMethod

	catalog  *catalog.Snapshot
	now      func() time.Time
	validate *validator.Validate
	entropy  *ulid.MonotonicEntropy
}

// Option configures a Draft.
type Option func(*Draft)

// WithClock overrides the time source used to reject past pickup dates and
// to stamp image ids.
func WithClock(now func() time.Time) Option {
	return func(d *Draft) {
		d.now = now
	}
}

// WithCatalog sets the catalog snapshot used for pricing.
func WithCatalog(s *catalog.Snapshot) Option {
	return func(d *Draft) {
		d.catalog = s
	}
}

// New returns an empty draft.
func New(opts ...Option) *Draft {
	d := &Draft{
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset()
	return d
}

// Reset returns the draft to its empty initial state. The catalog snapshot
// is kept.
func (d *Draft) Reset() {
	d.materials = make(map[string]struct{})
	d.weights = make(map[string]string)
	d.pickupDate = ""
	d.pickupTime = ""
	d.address = Address{}
	d.images = nil
	d.payment = PaymentCash
}

// SetCatalog replaces the catalog snapshot used for pricing.
func (d *Draft) SetCatalog(s *catalog.Snapshot) {
	d.catalog = s
}

// Catalog returns the catalog snapshot, or nil.
func (d *Draft) Catalog() *catalog.Snapshot {
	return d.catalog
}

// SetMaterials replaces the selected material (category) ids.
func (d *Draft) SetMaterials(ids []string) {
	d.materials = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			d.materials[id] = struct{}{}
		}
	}
}

// Materials returns the selected material ids, sorted.
func (d *Draft) Materials() []string {
	return sortedKeys(d.materials)
}

// SetSubcategoryWeights replaces the selected subcategories. Presence of a
// key marks the subcategory selected; the value is the raw weight input.
func (d *Draft) SetSubcategoryWeights(entries map[string]string) {
	d.weights = make(map[string]string, len(entries))
	for id, w := range entries {
		if id = strings.TrimSpace(id); id != "" {
			d.weights[id] = w
		}
	}
}

// SelectSubcategory marks id selected with DefaultWeight. An already
// selected subcategory keeps its weight.
func (d *Draft) SelectSubcategory(id string) {
	if _, ok := d.weights[id]; !ok && id != "" {
		d.weights[id] = DefaultWeight
	}
}

// DeselectSubcategory removes id from the selection.
func (d *Draft) DeselectSubcategory(id string) {
	delete(d.weights, id)
}

// SubcategoryWeights returns a copy of the selection.
func (d *Draft) SubcategoryWeights() map[string]string {
	out := make(map[string]string, len(d.weights))
	for k, v := range d.weights {
		out[k] = v
	}
	return out
}

// SetPickupDetails replaces the pickup date, slot and address. An empty date
// or the placeholder slot is accepted and leaves step 3 incomplete.
func (d *Draft) SetPickupDetails(date string, slot TimeSlot, addr Address) error {
	date = strings.TrimSpace(date)
	if date != "" {
		day, err := time.ParseInLocation(DateLayout, date, time.Local)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPickupDate, date)
		}
		now := d.now().In(time.Local)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		if day.Before(today) {
			return fmt.Errorf("%w: %s", ErrPickupDateInPast, date)
		}
	}
	if slot != "" && slot != TimeSlotPlaceholder && !slot.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTimeSlot, slot)
	}
	addr.FormattedAddress = strings.TrimSpace(addr.FormattedAddress)
	if err := d.validate.Struct(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	d.pickupDate = date
	d.pickupTime = slot
	d.address = addr
	return nil
}

// Pickup returns the pickup date, slot and address.
func (d *Draft) Pickup() (string, TimeSlot, Address) {
	return d.pickupDate, d.pickupTime, d.address
}

// SetImages replaces the attached images. Images without an id get a ULID.
func (d *Draft) SetImages(images []Image) error {
	if len(images) > MaxImages {
		return fmt.Errorf("%w: %d > %d", ErrTooManyImages, len(images), MaxImages)
	}
	out := make([]Image, len(images))
	for i, img := range images {
		if err := d.validate.Struct(img); err != nil {
			return fmt.Errorf("%w: image %d: %v", ErrInvalidImage, i, err)
		}
		if img.ID == "" {
			img.ID = d.newImageID()
		}
		out[i] = img
	}
	d.images = out
	return nil
}

// newImageID returns a ULID stamped with the draft clock, so image ids sort
// in attach order.
func (d *Draft) newImageID() string {
	if d.entropy == nil {
		d.entropy = ulid.Monotonic(rand.Reader, 0)
	}
	return ulid.MustNew(ulid.Timestamp(d.now()), d.entropy).String()
}

// Images returns a copy of the attached images in order.
func (d *Draft) Images() []Image {
	return append([]Image(nil), d.images...)
}

// PaymentMethod returns the payment method. Only cash is offered.
func (d *Draft) PaymentMethod() PaymentMethod {
	return d.payment
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
