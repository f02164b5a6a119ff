package cart

import (
	"fmt"
	"sort"

	"cartstore/internal/model"
	"cartstore/internal/validate"
)

// summarize derives the rollup for a line list. Pure; now is taken once per
// mutation so every listener sees identical content.
func summarize(lines []model.Line, now int64) model.Summary {
	sum := model.Summary{
		Items:       lines,
		IsEmpty:     len(lines) == 0,
		LastUpdated: now,
	}
	if sum.Items == nil {
		sum.Items = []model.Line{}
	}
	for _, ln := range lines {
		sum.TotalItems += ln.Quantity
		sum.Subtotal += ln.Price * float64(ln.Quantity)
		if ln.OriginalPrice > 0 && ln.Discount > 0 {
			sum.TotalDiscount += (ln.OriginalPrice - ln.Price) * float64(ln.Quantity)
		}
	}
	// The charged total is the subtotal: line prices are already net of any
	// discount, so the reported discount is never subtracted again.
	sum.Total = sum.Subtotal
	return sum
}

// Stats computes aggregate diagnostics over the current cart. Never nil and
// never fails; an empty cart yields zero values.
func (s *Store) Stats() *model.Stats {
	s.mu.Lock()
	lines := s.adapter.Load()
	s.mu.Unlock()

	st := &model.Stats{TotalLines: len(lines), Categories: []string{}}
	if len(lines) == 0 {
		return st
	}
	cats := make(map[string]struct{})
	var priceSum float64
	st.OldestAddedAt = lines[0].AddedAt
	st.NewestAddedAt = lines[0].AddedAt
	for _, ln := range lines {
		st.TotalItems += ln.Quantity
		priceSum += ln.Price
		if ln.Category != "" {
			cats[ln.Category] = struct{}{}
		}
		if ln.AddedAt < st.OldestAddedAt {
			st.OldestAddedAt = ln.AddedAt
		}
		if ln.AddedAt > st.NewestAddedAt {
			st.NewestAddedAt = ln.AddedAt
		}
	}
	st.AvgLinePrice = priceSum / float64(len(lines))
	for c := range cats {
		st.Categories = append(st.Categories, c)
	}
	sort.Strings(st.Categories)
	return st
}

// Report is the result of a diagnostic validation pass over the persisted
// cart.
type Report struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Validate re-runs the validator over every persisted line and reports
// human-readable issues. Diagnostic only; it is not invoked on reads.
func (s *Store) Validate() Report {
	s.mu.Lock()
	lines, err := s.adapter.LoadRaw()
	s.mu.Unlock()
	if err != nil {
		return Report{Valid: false, Issues: []string{fmt.Sprintf("persisted cart is not parseable: %v", err)}}
	}
	issues := validate.Issues(lines)
	if issues == nil {
		issues = []string{}
	}
	return Report{Valid: len(issues) == 0, Issues: issues}
}
