package economy

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInsufficient is wrapped by every shortfall error.
var ErrInsufficient = errors.New("insufficient resources")

// ErrNegative is returned when a caller passes a negative quantity.
var ErrNegative = errors.New("negative quantity")

// ShortfallError reports the first resource a debit could not cover.
type ShortfallError struct {
	Resource Resource
	Have     int
	Need     int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("insufficient %s: have %d, need %d", e.Resource, e.Have, e.Need)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficient }

// Ledger holds non-negative quantities of every resource kind.
// Quantities can only change through its methods, and every multi-kind
// debit either applies entirely or not at all.
type Ledger struct {
	qty Bundle
}

// NewLedger creates a ledger holding the given opening stock.
func NewLedger(opening Bundle) (Ledger, error) {
	var l Ledger
	if err := l.Credit(opening); err != nil {
		return Ledger{}, err
	}
	return l, nil
}

// Get returns the quantity of one resource.
func (l *Ledger) Get(r Resource) int {
	if !r.Valid() {
		return 0
	}
	return l.qty[r]
}

// Contents returns a copy of every quantity.
func (l *Ledger) Contents() Bundle {
	return l.qty
}

// Total returns the sum of all quantities.
func (l *Ledger) Total() int {
	n := 0
	for _, q := range l.qty {
		n += q
	}
	return n
}

// Has reports whether the ledger covers every quantity in cost.
func (l *Ledger) Has(cost Bundle) bool {
	return l.check(cost) == nil
}

// Shortfall returns the error Debit would return for cost, without
// changing anything.
func (l *Ledger) Shortfall(cost Bundle) error {
	return l.check(cost)
}

func (l *Ledger) check(cost Bundle) error {
	for i, need := range cost {
		if need < 0 {
			return fmt.Errorf("%s: %w", Resource(i), ErrNegative)
		}
		if l.qty[i] < need {
			return &ShortfallError{Resource: Resource(i), Have: l.qty[i], Need: need}
		}
	}
	return nil
}

// Debit removes cost from the ledger. If any resource is short, nothing is
// removed and a *ShortfallError is returned.
func (l *Ledger) Debit(cost Bundle) error {
	if err := l.check(cost); err != nil {
		return err
	}
	for i, need := range cost {
		l.qty[i] -= need
	}
	return nil
}

// DebitOne removes n units of a single resource, all-or-nothing.
func (l *Ledger) DebitOne(r Resource, n int) error {
	var b Bundle
	if !r.Valid() {
		return fmt.Errorf("debit: unknown resource %d", r)
	}
	b[r] = n
	return l.Debit(b)
}

// Credit adds amounts to the ledger.
func (l *Ledger) Credit(amounts Bundle) error {
	for i, q := range amounts {
		if q < 0 {
			return fmt.Errorf("%s: %w", Resource(i), ErrNegative)
		}
	}
	for i, q := range amounts {
		l.qty[i] += q
	}
	return nil
}

// CreditOne adds n units of a single resource.
func (l *Ledger) CreditOne(r Resource, n int) error {
	var b Bundle
	if !r.Valid() {
		return fmt.Errorf("credit: unknown resource %d", r)
	}
	b[r] = n
	return l.Credit(b)
}

// Transfer moves amounts from one ledger to another. Sufficiency is checked
// before either side changes; on failure both ledgers are untouched.
func Transfer(from, to *Ledger, amounts Bundle) error {
	if from == to {
		return errors.New("transfer: source and destination are the same ledger")
	}
	if err := from.check(amounts); err != nil {
		return err
	}
	for i, q := range amounts {
		from.qty[i] -= q
		to.qty[i] += q
	}
	return nil
}

// MarshalJSON encodes the ledger as a name → quantity object.
func (l Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.qty.Map())
}

// UnmarshalJSON decodes a name → quantity object.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	b, err := BundleFromMap(m)
	if err != nil {
		return err
	}
	l.qty = b
	return nil
}
