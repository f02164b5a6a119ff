// genops generates a sample cart mutation changelog for replay testing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"cartstore/internal/changelog"
	"cartstore/internal/model"
)

func main() {
	var count int
	var outputFile string
	flag.IntVar(&count, "count", 100, "number of operations to generate")
	flag.StringVar(&outputFile, "output", "cart.changelog.jsonl", "output file")
	flag.Parse()

	if err := generateOps(count, outputFile); err != nil {
		log.Fatalf("generation failed: %v", err)
	}
}

func generateOps(count int, outputFile string) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	products := []struct {
		id, name, category string
		price              float64
	}{
		{"p1", "Laptop 14", "electronics", 1200000},
		{"p2", "Mechanical Keyboard", "electronics", 89000},
		{"p3", "Espresso Beans 1kg", "grocery", 24000},
		{"p4", "Desk Lamp", "home", 45000},
		{"p5", "Water Bottle 750ml", "home", 15000},
	}

	baseTime := time.Now().UTC().Unix()
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	enc := json.NewEncoder(file)
	seq := int64(0)
	inCart := make(map[string]bool)
	for i := 0; i < count; i++ {
		p := products[rnd.Intn(len(products))]
		ts := baseTime + int64(i*10)
		seq++
		var e changelog.Entry
		switch {
		case !inCart[p.id] || rnd.Intn(10) < 6:
			ln := model.Line{
				ID:        p.id,
				Name:      p.name,
				Price:     p.price,
				Quantity:  int64(1 + rnd.Intn(3)),
				Category:  p.category,
				InStock:   true,
				AddedAt:   ts,
				UpdatedAt: ts,
			}
			e = changelog.Entry{Op: changelog.OpAdd, ItemID: p.id, Qty: ln.Quantity, Seq: seq, TS: ts, Line: &ln}
			inCart[p.id] = true
		case rnd.Intn(2) == 0:
			e = changelog.Entry{Op: changelog.OpUpdate, ItemID: p.id, Qty: int64(1 + rnd.Intn(5)), Seq: seq, TS: ts}
		default:
			e = changelog.Entry{Op: changelog.OpRemove, ItemID: p.id, Seq: seq, TS: ts}
			inCart[p.id] = false
		}
		if err := enc.Encode(&e); err != nil {
			return fmt.Errorf("encode op %d: %w", i+1, err)
		}
	}

	log.Printf("generated %d operations to %s", count, outputFile)
	return nil
}
