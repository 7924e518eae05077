package cart

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func docEqual(a, b Document) bool {
	if len(a.Lines) != len(b.Lines) {
		return false
	}
	for i := range a.Lines {
		if a.Lines[i] != b.Lines[i] {
			return false
		}
	}
	return true
}

func TestWithLineAddedIncrementsExisting(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	now := time.Now()

	doc := EmptyDocument().
		WithLineAdded(productID, 2, now).
		WithLineAdded(productID, 3, now)

	if len(doc.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(doc.Lines))
	}
	if doc.Quantity(productID) != 5 {
		t.Fatalf("expected quantity 5, got %d", doc.Quantity(productID))
	}
}

func TestWithLineAddedIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	doc := EmptyDocument().WithLineAdded(uuid.New(), 0, time.Now())
	if !doc.IsEmpty() {
		t.Fatal("adding zero quantity should be a no-op")
	}

	doc = EmptyDocument().WithLineAdded(uuid.New(), -4, time.Now())
	if !doc.IsEmpty() {
		t.Fatal("adding negative quantity should be a no-op")
	}
}

func TestWithQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	now := time.Now()

	doc := EmptyDocument().WithLineAdded(productID, 4, now)

	doc = doc.WithQuantity(productID, 0, now)
	if doc.Quantity(productID) != 0 || len(doc.Lines) != 0 {
		t.Fatalf("setting quantity 0 should remove the line, got %+v", doc.Lines)
	}

	doc = EmptyDocument().WithLineAdded(productID, 4, now).WithQuantity(productID, -2, now)
	if len(doc.Lines) != 0 {
		t.Fatalf("setting negative quantity should remove the line, got %+v", doc.Lines)
	}
}

func TestDocumentNeverHoldsNonPositiveQuantities(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	now := time.Now()

	doc := EmptyDocument().
		WithLineAdded(a, 1, now).
		WithLineAdded(b, 3, now).
		WithQuantity(a, -1, now).
		WithQuantity(b, 2, now).
		WithLineAdded(a, -5, now)

	for _, line := range doc.Lines {
		if line.Quantity <= 0 {
			t.Fatalf("line %s has non-positive quantity %d", line.ProductID, line.Quantity)
		}
	}
}

func TestWithLineRemovedAbsentIsNoop(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	doc := EmptyDocument().WithLineAdded(productID, 2, time.Now())

	got := doc.WithLineRemoved(uuid.New(), time.Now())
	if got.Quantity(productID) != 2 {
		t.Fatalf("removing an absent line should not change others, got %+v", got.Lines)
	}
}

func TestMergeSumsSharedProducts(t *testing.T) {
	t.Parallel()

	shared, onlyA, onlyB := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	a := EmptyDocument().
		WithLineAdded(shared, 2, now).
		WithLineAdded(onlyA, 1, now)
	b := EmptyDocument().
		WithLineAdded(shared, 3, now).
		WithLineAdded(onlyB, 4, now)

	merged := Merge(a, b)

	if merged.Quantity(shared) != 5 {
		t.Fatalf("shared product should sum to 5, got %d", merged.Quantity(shared))
	}
	if merged.Quantity(onlyA) != 1 || merged.Quantity(onlyB) != 4 {
		t.Fatalf("merge lost items: %+v", merged.Lines)
	}
}

func TestMergeIsCommutative(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	a := EmptyDocument().
		WithLineAdded(ids[0], 2, now).
		WithLineAdded(ids[1], 7, now)
	b := EmptyDocument().
		WithLineAdded(ids[1], 1, now).
		WithLineAdded(ids[2], 9, now)

	if !docEqual(Merge(a, b), Merge(b, a)) {
		t.Fatalf("merge order changed the result: %+v vs %+v", Merge(a, b).Lines, Merge(b, a).Lines)
	}
}

func TestMergeWithEmptyIsIdentity(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := EmptyDocument().WithLineAdded(uuid.New(), 3, now)

	merged := Merge(a, EmptyDocument())
	if len(merged.Lines) != 1 || merged.Lines[0].Quantity != 3 {
		t.Fatalf("merging with empty changed the cart: %+v", merged.Lines)
	}
}
