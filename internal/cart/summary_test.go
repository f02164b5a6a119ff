package cart

import (
	"encoding/json"
	"strings"
	"testing"

	"cartstore/internal/kv"
	"cartstore/internal/model"
	"cartstore/internal/persist"
)

// The reference scenario: line A (price=10000, qty=2, no discount) and line
// B (price=8000, originalPrice=10000, discount=20, qty=1).
func TestSummary_ReferenceScenario(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.Add(productA(), 2); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if _, err := st.Add(productB(), 1); err != nil {
		t.Fatalf("add B: %v", err)
	}

	sum := st.Summary()
	if sum.TotalItems != 3 {
		t.Fatalf("totalItems: got=%d want=3", sum.TotalItems)
	}
	if sum.Subtotal != 28000 {
		t.Fatalf("subtotal: got=%v want=28000", sum.Subtotal)
	}
	if sum.TotalDiscount != 2000 {
		t.Fatalf("totalDiscount: got=%v want=2000", sum.TotalDiscount)
	}
	// Total deliberately equals subtotal: line prices are already net of the
	// discount, so the reported discount must not be subtracted again.
	if sum.Total != 28000 {
		t.Fatalf("total: got=%v want=28000", sum.Total)
	}
	if sum.IsEmpty {
		t.Fatalf("isEmpty should be false")
	}
}

func TestSummary_EmptyShape(t *testing.T) {
	st, _ := newTestStore(t)
	sum := st.Summary()
	if !sum.IsEmpty || sum.TotalItems != 0 || sum.Subtotal != 0 || sum.Total != 0 {
		t.Fatalf("unexpected empty summary: %+v", sum)
	}
	if sum.Items == nil {
		t.Fatalf("items must be an empty list, not nil")
	}
}

func TestSummary_DiscountNeedsBothFields(t *testing.T) {
	// originalPrice without a discount flag must not count as a discount.
	st, _ := newTestStore(t)
	p := model.Product{ID: "p3", Name: "C", Price: model.PriceOf(5000), OriginalPrice: model.PriceOf(6000)}
	if _, err := st.Add(p, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := st.Summary().TotalDiscount; got != 0 {
		t.Fatalf("totalDiscount: got=%v want=0", got)
	}
}

func TestSummary_DegradesOnCorruptState(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(persist.DefaultKey, []byte("][ garbage"))
	st := New(persist.NewAdapter(store, persist.Options{}), Options{})

	sum := st.Summary()
	if !sum.IsEmpty {
		t.Fatalf("corrupt state must degrade to the empty summary: %+v", sum)
	}
}

func TestStats(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.Add(productA(), 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	p := productB()
	p.Category = "accessories"
	if _, err := st.Add(p, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	stats := st.Stats()
	if stats == nil {
		t.Fatalf("stats should never be nil")
	}
	if stats.TotalLines != 2 || stats.TotalItems != 3 {
		t.Fatalf("counts: %+v", stats)
	}
	if stats.AvgLinePrice != 9000 {
		t.Fatalf("avgLinePrice: got=%v want=9000", stats.AvgLinePrice)
	}
	if len(stats.Categories) != 2 || stats.Categories[0] != "accessories" || stats.Categories[1] != "electronics" {
		t.Fatalf("categories: %v", stats.Categories)
	}
	if stats.OldestAddedAt == 0 || stats.NewestAddedAt < stats.OldestAddedAt {
		t.Fatalf("addedAt range: %+v", stats)
	}
}

func TestStats_EmptyCart(t *testing.T) {
	st, _ := newTestStore(t)
	stats := st.Stats()
	if stats == nil || stats.TotalLines != 0 || len(stats.Categories) != 0 {
		t.Fatalf("unexpected empty stats: %+v", stats)
	}
}

func TestValidate_CleanCart(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.Add(productA(), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	rep := st.Validate()
	if !rep.Valid || len(rep.Issues) != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestValidate_ReportsBadPersistedLines(t *testing.T) {
	store := kv.NewMemory()
	// Persist a cart with one bad line behind the adapter's back.
	raw, err := json.Marshal([]model.Line{
		{ID: "p1", Name: "A", Price: 100, Quantity: 1},
		{ID: "p2", Name: "B", Price: 100, Quantity: 0},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_ = store.Set(persist.DefaultKey, raw)
	st := New(persist.NewAdapter(store, persist.Options{}), Options{})

	rep := st.Validate()
	if rep.Valid || len(rep.Issues) != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if !strings.Contains(rep.Issues[0], "quantity") {
		t.Fatalf("issue should mention quantity: %q", rep.Issues[0])
	}
}

func TestValidate_UnparsableState(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(persist.DefaultKey, []byte("{oops"))
	st := New(persist.NewAdapter(store, persist.Options{}), Options{})

	rep := st.Validate()
	if rep.Valid || len(rep.Issues) != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
