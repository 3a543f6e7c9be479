package draft

import "fmt"

// Step is one screen of the wizard, numbered from 1.
type Step int

const (
	StepMaterials Step = iota + 1
	StepSubcategories
	StepPickup
	StepImages
	StepConfirm
)

var stepNames = map[Step]string{
	StepMaterials:     "materials",
	StepSubcategories: "subcategories",
	StepPickup:        "pickup",
	StepImages:        "images",
	StepConfirm:       "confirm",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// IsStepComplete reports whether the gate for step is satisfied. It has no
// side effects.
func (d *Draft) IsStepComplete(step Step) bool {
	return d.incompleteReason(step) == ""
}

func (d *Draft) incompleteReason(step Step) string {
	switch step {
	case StepMaterials:
		if len(d.materials) == 0 {
			return "no material selected"
		}
	case StepSubcategories:
		for _, id := range sortedKeys(d.weights) {
			if _, ok := ParseWeight(d.weights[id]); !ok {
				return fmt.Sprintf("weight for %s is not a positive number", id)
			}
		}
	case StepPickup:
		switch {
		case d.pickupDate == "":
			return "no pickup date"
		case d.pickupTime == "" || d.pickupTime == TimeSlotPlaceholder:
			return "no pickup time"
		case d.address.FormattedAddress == "":
			return "no pickup address"
		}
	case StepImages:
		if len(d.images) == 0 {
			return "no image"
		}
	case StepConfirm:
		if d.payment != PaymentCash {
			return "no payment method"
		}
	default:
		return "unknown step"
	}
	return ""
}

// CanSubmit reports whether the draft may be submitted.
func (d *Draft) CanSubmit() bool {
	return d.checkSubmittable() == nil
}

func (d *Draft) checkSubmittable() error {
	for s := StepMaterials; s <= StepConfirm; s++ {
		if reason := d.incompleteReason(s); reason != "" {
			return &IncompleteError{Step: s, Reason: reason}
		}
	}
	if len(d.weights) == 0 {
		return &IncompleteError{Step: StepSubcategories, Reason: "no subcategory selected"}
	}
	return nil
}

// Wizard tracks the current step of a flow over one Draft.
type Wizard struct {
	draft   *Draft
	current Step
}

// NewWizard starts a flow at step 1 with a freshly reset draft.
func NewWizard(d *Draft) *Wizard {
	d.Reset()
	return &Wizard{draft: d, current: StepMaterials}
}

// Draft returns the draft the wizard edits.
func (w *Wizard) Draft() *Draft {
	return w.draft
}

// Current returns the current step.
func (w *Wizard) Current() Step {
	return w.current
}

// Next advances when the current step is complete.
func (w *Wizard) Next() error {
	if w.current == StepConfirm {
		return ErrNoNextStep
	}
	if reason := w.draft.incompleteReason(w.current); reason != "" {
		return &IncompleteError{Step: w.current, Reason: reason}
	}
	w.current++
	return nil
}

// Prev steps back. Going back never needs a gate.
func (w *Wizard) Prev() error {
	if w.current == StepMaterials {
		return ErrNoPreviousStep
	}
	w.current--
	return nil
}

// Abandon resets the draft and returns to step 1.
func (w *Wizard) Abandon() {
	w.draft.Reset()
	w.current = StepMaterials
}
