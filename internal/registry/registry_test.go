package registry

import (
	"math/rand"
	"sort"
	"sync"
	"testing"
)

// TestAddIsIdempotent verifies that adding the same value twice keeps a single member.
func TestAddIsIdempotent(t *testing.T) {
	r := New[int]()

	if !r.Add(1) {
		t.Error("first Add(1) reported existing member")
	}
	if r.Add(1) {
		t.Error("second Add(1) reported a new member")
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

// TestRemoveAbsentIsNoop verifies that removing an unknown or already removed
// value neither fails nor disturbs other members.
func TestRemoveAbsentIsNoop(t *testing.T) {
	r := New[string]()
	r.Add("a")

	if r.Remove("missing") {
		t.Error("Remove of absent value reported removal")
	}
	if !r.Remove("a") {
		t.Error("Remove of present value reported no removal")
	}
	if r.Remove("a") {
		t.Error("second Remove of the same value reported removal")
	}
	if got := r.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

// TestSnapshotIsIndependent verifies that mutating the registry after a
// snapshot does not change the snapshot.
func TestSnapshotIsIndependent(t *testing.T) {
	r := New[int]()
	for i := 0; i < 5; i++ {
		r.Add(i)
	}

	snap := r.Snapshot()
	r.Remove(0)
	r.Remove(1)
	r.Add(99)

	if len(snap) != 5 {
		t.Fatalf("snapshot length = %d, want 5", len(snap))
	}
	sort.Ints(snap)
	for i, v := range snap {
		if v != i {
			t.Errorf("snapshot[%d] = %d, want %d", i, v, i)
		}
	}
	if r.Contains(0) || !r.Contains(99) {
		t.Error("live registry did not reflect mutations")
	}
}

// TestSnapshotOfEmptyRegistry verifies an empty registry yields an empty, non-nil snapshot.
func TestSnapshotOfEmptyRegistry(t *testing.T) {
	r := New[int]()
	snap := r.Snapshot()
	if snap == nil || len(snap) != 0 {
		t.Errorf("Snapshot() = %v, want empty slice", snap)
	}
}

// TestMembershipMatchesModel applies random connect/disconnect sequences and
// compares the registry against a plain map model.
func TestMembershipMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		r := New[int]()
		model := make(map[int]bool)

		for step := 0; step < 200; step++ {
			id := rng.Intn(20)
			if rng.Intn(2) == 0 {
				r.Add(id)
				model[id] = true
			} else {
				r.Remove(id)
				delete(model, id)
			}
		}

		if r.Len() != len(model) {
			t.Fatalf("round %d: Len() = %d, want %d", round, r.Len(), len(model))
		}
		for _, id := range r.Snapshot() {
			if !model[id] {
				t.Fatalf("round %d: registry contains %d which the model does not", round, id)
			}
		}
		for id := range model {
			if !r.Contains(id) {
				t.Fatalf("round %d: registry is missing %d", round, id)
			}
		}
	}
}

// TestConcurrentAccess exercises Add, Remove and Snapshot from many goroutines.
// Run with -race to detect unsynchronized access.
func TestConcurrentAccess(t *testing.T) {
	r := New[int]()
	var wg sync.WaitGroup

	const workers = 16
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := base*1000 + i
				r.Add(id)
				_ = r.Snapshot()
				r.Remove(id)
			}
		}(w)
	}

	wg.Wait()

	if got := r.Len(); got != 0 {
		t.Errorf("Len() after balanced add/remove = %d, want 0", got)
	}
}
