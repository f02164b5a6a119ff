package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidProduct is returned when a product given to the store lacks an
// identifier, a name, or a price.
var ErrInvalidProduct = errors.New("invalid product")

// BackupVersion tags the backup payload format.
const BackupVersion = "1"

// NowUnix returns current time in epoch seconds. Split for testability.
var NowUnix = func() int64 { return time.Now().UTC().Unix() }

// Line is one product's presence in the cart. ID is the unique key within a
// cart; AddedAt is set once and UpdatedAt is refreshed on every mutation of
// the line. Price is the effective unit price actually charged;
// OriginalPrice is the pre-discount reference price when a discount applies.
type Line struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"originalPrice,omitempty"`
	Quantity      int64   `json:"quantity"`
	Category      string  `json:"category,omitempty"`
	Capacity      string  `json:"capacity,omitempty"`
	Image         string  `json:"image,omitempty"`
	InStock       bool    `json:"inStock,omitempty"`
	Discount      float64 `json:"discount,omitempty"`
	AddedAt       int64   `json:"addedAt"`
	UpdatedAt     int64   `json:"updatedAt"`
}

// Price decodes from either a JSON number or a string with grouping
// separators such as "1,280,000".
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := ParsePrice(s)
		if err != nil {
			return err
		}
		*p = Price(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*p = Price(f)
	return nil
}

// PriceOf wraps a numeric price for building a Product in code.
func PriceOf(f float64) *Price {
	p := Price(f)
	return &p
}

// PriceFromString parses a grouped string price, e.g. "1,280,000".
func PriceFromString(s string) (*Price, error) {
	f, err := ParsePrice(s)
	if err != nil {
		return nil, err
	}
	return PriceOf(f), nil
}

// ParsePrice strips grouping separators and parses the remainder as a
// number. Failure is explicit; no NaN ever leaves this function.
func ParsePrice(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '_':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("parse price: empty value")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse price %q: not a finite number", s)
	}
	return f, nil
}

// Product is the external input shape accepted by Add. Identifiers may
// arrive under either "id" or "_id"; prices as numbers or grouped strings.
// A nil Price means the field was absent.
type Product struct {
	ID            string  `json:"id,omitempty"`
	AltID         string  `json:"_id,omitempty"`
	Name          string  `json:"name"`
	Price         *Price  `json:"price,omitempty"`
	OriginalPrice *Price  `json:"originalPrice,omitempty"`
	Category      string  `json:"category,omitempty"`
	Capacity      string  `json:"capacity,omitempty"`
	Image         string  `json:"image,omitempty"`
	InStock       bool    `json:"inStock,omitempty"`
	Discount      float64 `json:"discount,omitempty"`
}

// Key resolves the product identifier, preferring "id" over "_id".
func (p Product) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.AltID
}

// Normalize maps an accepted external product shape into a canonical cart
// line. It fails with ErrInvalidProduct when the identifier, name, or price
// is missing. Quantities below 1 are clamped to 1 so a fresh line can never
// violate the positive-quantity invariant.
func Normalize(p Product, qty int64, now int64) (Line, error) {
	id := p.Key()
	if id == "" || p.Name == "" || p.Price == nil {
		return Line{}, fmt.Errorf("%w: id, name and price are required", ErrInvalidProduct)
	}
	if qty < 1 {
		qty = 1
	}
	ln := Line{
		ID:        id,
		Name:      p.Name,
		Price:     float64(*p.Price),
		Quantity:  qty,
		Category:  p.Category,
		Capacity:  p.Capacity,
		Image:     p.Image,
		InStock:   p.InStock,
		Discount:  p.Discount,
		AddedAt:   now,
		UpdatedAt: now,
	}
	if p.OriginalPrice != nil {
		ln.OriginalPrice = float64(*p.OriginalPrice)
	}
	return ln, nil
}

// ProductFromLine rebuilds the input shape from a stored line, used when
// replaying a changelog through the store's public operations.
func ProductFromLine(ln Line) Product {
	p := Product{
		ID:       ln.ID,
		Name:     ln.Name,
		Price:    PriceOf(ln.Price),
		Category: ln.Category,
		Capacity: ln.Capacity,
		Image:    ln.Image,
		InStock:  ln.InStock,
		Discount: ln.Discount,
	}
	if ln.OriginalPrice > 0 {
		p.OriginalPrice = PriceOf(ln.OriginalPrice)
	}
	return p
}

// Summary is the derived, read-only rollup of a cart, recomputed per query
// and never stored. Total equals Subtotal: line prices are already net of
// any discount, so TotalDiscount is informational only.
type Summary struct {
	Items         []Line  `json:"items"`
	TotalItems    int64   `json:"totalItems"`
	Subtotal      float64 `json:"subtotal"`
	TotalDiscount float64 `json:"totalDiscount"`
	Total         float64 `json:"total"`
	IsEmpty       bool    `json:"isEmpty"`
	LastUpdated   int64   `json:"lastUpdated"`
}

// Backup is an advisory out-of-band copy of the cart, stored under a derived
// key and only ever applied on explicit restore.
type Backup struct {
	ID        string `json:"id"`
	Items     []Line `json:"items"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// Stats carries aggregate diagnostics over the cart for observability.
type Stats struct {
	TotalLines    int      `json:"totalLines"`
	TotalItems    int64    `json:"totalItems"`
	Categories    []string `json:"categories"`
	AvgLinePrice  float64  `json:"avgLinePrice"`
	OldestAddedAt int64    `json:"oldestAddedAt"`
	NewestAddedAt int64    `json:"newestAddedAt"`
}
