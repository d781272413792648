package refine

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrInfeasibleBasket marks a basket no combination of sources can cover
// under the given costs. The solver's own diagnosis is wrapped, not swallowed.
var ErrInfeasibleBasket = errors.New("infeasible basket")

// ErrInvalidInput marks solver arguments the caller can correct: a refine
// rate outside (0, 1] or a cost vector that does not match the table.
var ErrInvalidInput = errors.New("invalid solver input")

// roundEps absorbs simplex floating-point noise before ceiling a quantity,
// so a solution of 1000.0000000004 does not become 1001 units.
const roundEps = 1e-9

// SourceAmount is one row of the required-input table.
type SourceAmount struct {
	Name   string `json:"name"`
	TypeID int32  `json:"type_id"`
	Units  int64  `json:"units"`
}

// MineralAmount is one row of the resulting or surplus table.
type MineralAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Result holds the three solver output tables.
type Result struct {
	Required  []SourceAmount  `json:"required"`  // raw units to acquire, rounded up
	Resulting []MineralAmount `json:"resulting"` // minerals the rounded plan actually yields
	Surplus   []MineralAmount `json:"surplus"`   // resulting minus basket
}

// Solve finds the minimum-cost mix of raw sources whose refined output covers
// the basket: minimize costs·x subject to Yᵀx ≥ basket, x ≥ 0, where Y is the
// yield table scaled by refineRate. The solver wants A·x ≤ b, so both the
// transposed yield matrix and the basket are negated to flip the inequality;
// slack variables then bring it to standard form for the simplex method.
//
// The fractional solution is rounded up per source (partial units cannot be
// bought) and multiplied back through the yields to report what the rounded
// plan really produces.
func Solve(basket Basket, refineRate float64, costs []float64, table *YieldTable) (*Result, error) {
	nSrc := len(table.Sources)
	nMin := len(table.Minerals)
	if nSrc == 0 || nMin == 0 {
		return nil, fmt.Errorf("yield table %s is empty", table.Name)
	}
	if refineRate <= 0 || refineRate > 1 {
		return nil, fmt.Errorf("%w: refine rate %v outside (0, 1]", ErrInvalidInput, refineRate)
	}
	if len(costs) != nSrc {
		return nil, fmt.Errorf("%w: have %d cost coefficients, table %s has %d sources",
			ErrInvalidInput, len(costs), table.Name, nSrc)
	}
	for i, c := range costs {
		if c < 0 || math.IsNaN(c) {
			return nil, fmt.Errorf("%w: source %s cost %v", ErrInvalidInput, table.Sources[i].Name, c)
		}
	}

	// G = -Yᵀ (minerals x sources), h = -basket: G·x ≤ h is the cover
	// constraint with the direction flipped. Standard form appends one
	// slack per mineral: [G | I]·z = h, z ≥ 0.
	need := basket.mineralVector(table)
	a := mat.NewDense(nMin, nSrc+nMin, nil)
	h := make([]float64, nMin)
	for j := 0; j < nMin; j++ {
		for i, src := range table.Sources {
			a.Set(j, i, -src.Yields[j]*refineRate)
		}
		a.Set(j, nSrc+j, 1)
		h[j] = -need[j]
	}

	c := make([]float64, nSrc+nMin)
	copy(c, costs)

	_, z, err := lp.Simplex(c, a, h, 1e-10, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasibleBasket, err)
	}

	required := make([]SourceAmount, nSrc)
	for i, src := range table.Sources {
		units := int64(math.Ceil(z[i] - roundEps))
		if units < 0 {
			units = 0
		}
		required[i] = SourceAmount{Name: src.Name, TypeID: src.TypeID, Units: units}
	}

	resulting := make([]MineralAmount, nMin)
	surplus := make([]MineralAmount, nMin)
	for j, mineral := range table.Minerals {
		var got float64
		for i, src := range table.Sources {
			got += src.Yields[j] * refineRate * float64(required[i].Units)
		}
		resulting[j] = MineralAmount{Name: mineral, Amount: got}
		surplus[j] = MineralAmount{Name: mineral, Amount: got - need[j]}
	}

	return &Result{Required: required, Resulting: resulting, Surplus: surplus}, nil
}
