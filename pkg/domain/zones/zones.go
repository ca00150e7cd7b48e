// Package zones holds the static training-zone configuration used for
// time-in-zone binning. A table is configured once per athlete profile
// and is read-only during processing.
package zones

import (
	"fmt"
	"math"
)

// Zone is one named band. A value v belongs to the zone when
// Lower <= v < Upper; the final zone's upper bound is inclusive so the
// table covers its whole domain.
type Zone struct {
	Name  string
	Lower float64
	Upper float64
}

// Table is an ordered set of zones partitioning the metric's domain
// with no gaps or overlaps.
type Table struct {
	zones []Zone
}

// New validates and builds a Table. Zones must be ordered, each with
// Lower < Upper, and each zone's lower bound must equal its
// predecessor's upper bound.
func New(zs []Zone) (*Table, error) {
	if len(zs) == 0 {
		return nil, fmt.Errorf("zone table: no zones")
	}
	for i, z := range zs {
		if z.Name == "" {
			return nil, fmt.Errorf("zone table: zone %d has no name", i)
		}
		if z.Lower >= z.Upper {
			return nil, fmt.Errorf("zone table: zone %q has lower bound %.1f >= upper bound %.1f", z.Name, z.Lower, z.Upper)
		}
		if i > 0 && z.Lower != zs[i-1].Upper {
			return nil, fmt.Errorf("zone table: gap or overlap between %q and %q", zs[i-1].Name, z.Name)
		}
	}
	out := make([]Zone, len(zs))
	copy(out, zs)
	return &Table{zones: out}, nil
}

// FromUpperBounds builds an N-zone table from ascending upper bounds,
// named Z1..ZN, starting at zero and topping out at +Inf. This is the
// shape HR zone definitions arrive in from FIT files.
func FromUpperBounds(bounds []float64) (*Table, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("zone table: no bounds")
	}
	zs := make([]Zone, 0, len(bounds)+1)
	lower := 0.0
	for i, b := range bounds {
		zs = append(zs, Zone{Name: fmt.Sprintf("Z%d", i+1), Lower: lower, Upper: b})
		lower = b
	}
	zs = append(zs, Zone{Name: fmt.Sprintf("Z%d", len(bounds)+1), Lower: lower, Upper: math.Inf(1)})
	return New(zs)
}

// Default returns a 5-zone heart-rate table for an unconfigured athlete.
func Default() *Table {
	t, _ := New([]Zone{
		{Name: "Z1", Lower: 0, Upper: 135},
		{Name: "Z2", Lower: 135, Upper: 155},
		{Name: "Z3", Lower: 155, Upper: 170},
		{Name: "Z4", Lower: 170, Upper: 185},
		{Name: "Z5", Lower: 185, Upper: math.Inf(1)},
	})
	return t
}

// Classify returns the zone name containing v. The final zone's upper
// bound is inclusive.
func (t *Table) Classify(v float64) (string, bool) {
	for i, z := range t.zones {
		if v >= z.Lower && (v < z.Upper || (i == len(t.zones)-1 && v <= z.Upper)) {
			return z.Name, true
		}
	}
	return "", false
}

// Zones returns the ordered zone list.
func (t *Table) Zones() []Zone {
	out := make([]Zone, len(t.zones))
	copy(out, t.zones)
	return out
}
