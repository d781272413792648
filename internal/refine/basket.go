package refine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Basket is the target vector of mineral quantities to cover.
type Basket map[string]int64

// DefaultBasket returns the baseline basket for the given yield table:
// every mineral present, zero required. User input is merged over this, so
// unspecified minerals stay at the baseline.
func DefaultBasket(table *YieldTable) Basket {
	b := make(Basket, len(table.Minerals))
	for _, m := range table.Minerals {
		b[m] = 0
	}
	return b
}

// Merge overlays user-requested quantities on the baseline. Minerals the
// yield table does not know are rejected.
func (b Basket) Merge(table *YieldTable, wanted Basket) error {
	for mineral, amount := range wanted {
		if _, ok := b[mineral]; !ok {
			return fmt.Errorf("unknown mineral %q (table %s)", mineral, table.Name)
		}
		if amount < 0 {
			return fmt.Errorf("mineral %q: negative quantity %d", mineral, amount)
		}
		b[mineral] = amount
	}
	return nil
}

// ParseBasket parses user input of the form "Tritanium:1000,Pyerite 500".
// Both colon and space separate name from quantity, mirroring the free-form
// input the original tool accepted.
func ParseBasket(s string) (Basket, error) {
	b := make(Basket)
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == ';' }) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var name, qty string
		if i := strings.IndexAny(field, ": "); i >= 0 {
			name, qty = field[:i], strings.TrimSpace(field[i+1:])
		}
		if name == "" || qty == "" {
			return nil, fmt.Errorf("malformed basket entry %q", field)
		}
		n, err := strconv.ParseInt(qty, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("basket entry %q: %v", field, err)
		}
		b[name] = n
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty basket")
	}
	return b, nil
}

// mineralVector lays the basket out in the table's mineral order.
func (b Basket) mineralVector(table *YieldTable) []float64 {
	v := make([]float64, len(table.Minerals))
	for i, m := range table.Minerals {
		v[i] = float64(b[m])
	}
	return v
}

// Names returns the basket's mineral names sorted for stable output.
func (b Basket) Names() []string {
	names := make([]string, 0, len(b))
	for m := range b {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}
