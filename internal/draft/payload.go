package draft

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// OrderItem is one priced line of an order.
type OrderItem struct {
	Scrap  string  `json:"scrap"`
	Weight float64 `json:"weight"`
	Amount float64 `json:"amount"`
}

// Payload is the assembled order, ready for multipart encoding.
type Payload struct {
	PickUpDate      string
	PickUpTime      TimeSlot
	PickupAddress   Address
	OrderItems      []OrderItem
	EstimatedAmount float64
	PaymentMethod   PaymentMethod
	Images          []Image
}

// BuildSubmissionPayload prices every selected subcategory against the
// catalog snapshot. It fails with ErrValidationIncomplete when the draft
// cannot be submitted and with a *CatalogError when a subcategory is not in
// the snapshot. Items are ordered by subcategory id.
func (d *Draft) BuildSubmissionPayload() (*Payload, error) {
	if err := d.checkSubmittable(); err != nil {
		return nil, err
	}

	ids := sortedKeys(d.weights)
	items := make([]OrderItem, 0, len(ids))
	var total float64
	for _, id := range ids {
		var scrapPrice float64
		found := false
		if d.catalog != nil {
			if s, ok := d.catalog.Lookup(id); ok {
				scrapPrice, found = s.PricePerKg, true
			}
		}
		if !found {
			return nil, &CatalogError{SubcategoryID: id}
		}

		weight := WeightOrDefault(d.weights[id])
		amount := weight * scrapPrice
		items = append(items, OrderItem{Scrap: id, Weight: weight, Amount: amount})
		total += amount
	}

	return &Payload{
		PickUpDate:      d.pickupDate,
		PickUpTime:      d.pickupTime,
		PickupAddress:   d.address,
		OrderItems:      items,
		EstimatedAmount: total,
		PaymentMethod:   d.payment,
		Images:          d.Images(),
	}, nil
}

// OrderItemsJSON encodes the item list for the orderItems form field.
func (p *Payload) OrderItemsJSON() (string, error) {
	b, err := json.Marshal(p.OrderItems)
	if err != nil {
		return "", fmt.Errorf("marshal order items: %w", err)
	}
	return string(b), nil
}

// PickupAddressJSON encodes the address for the pickupAddress form field.
func (p *Payload) PickupAddressJSON() (string, error) {
	b, err := json.Marshal(p.PickupAddress)
	if err != nil {
		return "", fmt.Errorf("marshal pickup address: %w", err)
	}
	return string(b), nil
}

// EstimatedAmountString formats the total in its shortest exact form.
func (p *Payload) EstimatedAmountString() string {
	return strconv.FormatFloat(p.EstimatedAmount, 'f', -1, 64)
}
