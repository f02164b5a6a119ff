// Package replay rebuilds a cart store from a mutation changelog.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"cartstore/internal/cart"
	"cartstore/internal/changelog"
	"cartstore/internal/model"
)

// Result reports the outcome of a replay.
type Result struct {
	Applied int
	Skipped int
	Err     error
}

// ReplayFile feeds a jsonl changelog through a live store's public
// operations. Entries at or below fromSeq are skipped, as are entries with
// an unknown op. A malformed line aborts the replay.
func ReplayFile(path string, st *cart.Store, fromSeq int64) Result {
	file, err := os.Open(path)
	if err != nil {
		return Result{Err: fmt.Errorf("open changelog: %w", err)}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	applied, skipped := 0, 0
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		var e changelog.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return Result{Applied: applied, Skipped: skipped, Err: fmt.Errorf("unmarshal line %d: %w", lineNum, err)}
		}
		if e.Seq != 0 && e.Seq <= fromSeq {
			skipped++
			continue
		}
		ok, err := Apply(st, e)
		if err != nil {
			return Result{Applied: applied, Skipped: skipped, Err: fmt.Errorf("apply line %d: %w", lineNum, err)}
		}
		if ok {
			applied++
		} else {
			skipped++
		}
	}

	if err := scanner.Err(); err != nil {
		return Result{Applied: applied, Skipped: skipped, Err: fmt.Errorf("scan changelog: %w", err)}
	}

	return Result{Applied: applied, Skipped: skipped}
}

// Apply maps one changelog entry onto a store operation. Unknown ops and
// add entries without a line payload are skipped without error so a partly
// damaged changelog still replays.
func Apply(st *cart.Store, e changelog.Entry) (bool, error) {
	switch e.Op {
	case changelog.OpAdd:
		if e.Line == nil {
			return false, nil
		}
		qty := e.Qty
		if qty < 1 {
			qty = e.Line.Quantity
		}
		if _, err := st.Add(model.ProductFromLine(*e.Line), qty); err != nil {
			return false, err
		}
		return true, nil
	case changelog.OpUpdate:
		if _, err := st.UpdateQuantity(e.ItemID, e.Qty); err != nil {
			return false, err
		}
		return true, nil
	case changelog.OpRemove:
		if _, err := st.Remove(e.ItemID); err != nil {
			return false, err
		}
		return true, nil
	case changelog.OpClear:
		if _, err := st.Clear(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}
