package cart

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Line is one product entry in a cart document.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Document is the fast-path cart snapshot held in the cache. Mutations are
// pure: each returns a new value and never leaves a zero or negative
// quantity behind.
type Document struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

func EmptyDocument() Document {
	return Document{Lines: []Line{}}
}

func (d Document) IsEmpty() bool {
	return len(d.Lines) == 0
}

func (d Document) Quantity(productID uuid.UUID) int {
	for _, line := range d.Lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

// WithLineAdded increments an existing line or appends a new one. Adding a
// non-positive quantity is a no-op.
func (d Document) WithLineAdded(productID uuid.UUID, qty int, now time.Time) Document {
	if qty <= 0 {
		return d
	}
	out := d.clone()
	for i, line := range out.Lines {
		if line.ProductID == productID {
			out.Lines[i].Quantity += qty
			out.UpdatedAt = now
			return out
		}
	}
	out.Lines = append(out.Lines, Line{ProductID: productID, Quantity: qty})
	out.UpdatedAt = now
	return out
}

// WithQuantity sets a line to an absolute quantity. Zero or negative removes
// the line entirely.
func (d Document) WithQuantity(productID uuid.UUID, qty int, now time.Time) Document {
	if qty <= 0 {
		return d.WithLineRemoved(productID, now)
	}
	out := d.clone()
	for i, line := range out.Lines {
		if line.ProductID == productID {
			out.Lines[i].Quantity = qty
			out.UpdatedAt = now
			return out
		}
	}
	out.Lines = append(out.Lines, Line{ProductID: productID, Quantity: qty})
	out.UpdatedAt = now
	return out
}

func (d Document) WithLineRemoved(productID uuid.UUID, now time.Time) Document {
	out := Document{Lines: make([]Line, 0, len(d.Lines)), UpdatedAt: now}
	for _, line := range d.Lines {
		if line.ProductID != productID {
			out.Lines = append(out.Lines, line)
		}
	}
	return out
}

func (d Document) clone() Document {
	out := Document{
		Lines:     make([]Line, len(d.Lines)),
		UpdatedAt: d.UpdatedAt,
	}
	copy(out.Lines, d.Lines)
	return out
}

// Merge combines two documents by summing quantities per product. The result
// is sorted by product id so Merge(a, b) equals Merge(b, a).
func Merge(a, b Document) Document {
	totals := map[uuid.UUID]int{}
	for _, line := range a.Lines {
		if line.Quantity > 0 {
			totals[line.ProductID] += line.Quantity
		}
	}
	for _, line := range b.Lines {
		if line.Quantity > 0 {
			totals[line.ProductID] += line.Quantity
		}
	}

	out := Document{Lines: make([]Line, 0, len(totals))}
	for id, qty := range totals {
		out.Lines = append(out.Lines, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(out.Lines, func(i, j int) bool {
		return out.Lines[i].ProductID.String() < out.Lines[j].ProductID.String()
	})

	if a.UpdatedAt.After(b.UpdatedAt) {
		out.UpdatedAt = a.UpdatedAt
	} else {
		out.UpdatedAt = b.UpdatedAt
	}
	return out
}
