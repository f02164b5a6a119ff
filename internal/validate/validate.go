package validate

import (
	"fmt"
	"math"

	"cartstore/internal/model"
)

// Valid reports whether a candidate cart line is structurally sound: a
// non-empty id, a non-empty name, a finite price, and a positive quantity.
// It is a pure predicate used identically on the load and save paths so a
// corrupt entry can never round-trip.
func Valid(ln model.Line) bool {
	if ln.ID == "" || ln.Name == "" {
		return false
	}
	if math.IsNaN(ln.Price) || math.IsInf(ln.Price, 0) {
		return false
	}
	return ln.Quantity > 0
}

// Filter returns the valid subset of lines, preserving order.
func Filter(lines []model.Line) []model.Line {
	out := make([]model.Line, 0, len(lines))
	for _, ln := range lines {
		if Valid(ln) {
			out = append(out, ln)
		}
	}
	return out
}

// Issues describes what is wrong with each invalid line, for diagnostics.
func Issues(lines []model.Line) []string {
	var out []string
	for i, ln := range lines {
		switch {
		case ln.ID == "":
			out = append(out, fmt.Sprintf("line %d: missing id", i))
		case ln.Name == "":
			out = append(out, fmt.Sprintf("line %d (%s): missing name", i, ln.ID))
		case math.IsNaN(ln.Price) || math.IsInf(ln.Price, 0):
			out = append(out, fmt.Sprintf("line %d (%s): price is not a finite number", i, ln.ID))
		case ln.Quantity <= 0:
			out = append(out, fmt.Sprintf("line %d (%s): quantity must be positive, got %d", i, ln.ID, ln.Quantity))
		}
	}
	return out
}
