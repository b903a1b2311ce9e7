package bst_test

import (
	"cmp"
	"errors"
	"strings"
	"testing"

	"github.com/snehjoshi/bakery/internal/container"
	"github.com/snehjoshi/bakery/internal/container/bst"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

func intTree(vals ...int) *bst.Tree[int] {
	t := bst.New(cmp.Compare[int])
	for _, v := range vals {
		t.Insert(v)
	}
	return t
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type item struct {
	name  string
	price int
	tag   string
}

// ─── Ordering ────────────────────────────────────────────────────────────────

func TestInOrder_NonDecreasing(t *testing.T) {
	tr := intTree(50, 30, 70, 20, 40, 60, 80, 30, 65, 10)
	got := tr.InOrder()
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("InOrder not sorted: %v", got)
		}
	}
	if tr.Len() != 10 || len(got) != 10 {
		t.Fatalf("Len = %d, traversal len = %d, want 10", tr.Len(), len(got))
	}
}

func TestLenAfterInserts(t *testing.T) {
	tr := intTree(1, 2, 3)
	before := tr.Len()
	for _, v := range []int{9, 8, 7, 7} {
		tr.Insert(v)
	}
	if tr.Len() != before+4 {
		t.Fatalf("Len = %d, want %d", tr.Len(), before+4)
	}
}

func TestTraversals(t *testing.T) {
	//        50
	//      /    \
	//    30      70
	//   /  \    /
	//  20  40  60
	tr := intTree(50, 30, 70, 20, 40, 60)

	if got, want := tr.PreOrder(), []int{50, 30, 20, 40, 70, 60}; !equalInts(got, want) {
		t.Errorf("PreOrder = %v, want %v", got, want)
	}
	if got, want := tr.PostOrder(), []int{20, 40, 30, 60, 70, 50}; !equalInts(got, want) {
		t.Errorf("PostOrder = %v, want %v", got, want)
	}
	if got, want := tr.LevelOrder(), []int{50, 30, 70, 20, 40, 60}; !equalInts(got, want) {
		t.Errorf("LevelOrder = %v, want %v", got, want)
	}
	// Recomputed on every call.
	tr.Insert(45)
	if got := tr.InOrder(); !equalInts(got, []int{20, 30, 40, 45, 50, 60, 70}) {
		t.Errorf("InOrder after insert = %v", got)
	}
	if s := tr.String(); s != "[50 30 70 20 40 60 45]" {
		t.Errorf("String = %q", s)
	}
}

func TestHeight(t *testing.T) {
	if h := intTree().Height(); h != -1 {
		t.Errorf("empty height = %d, want -1", h)
	}
	if h := intTree(1).Height(); h != 0 {
		t.Errorf("single height = %d, want 0", h)
	}
	// Sorted input degenerates into a chain.
	if h := intTree(1, 2, 3, 4, 5).Height(); h != 4 {
		t.Errorf("chain height = %d, want 4", h)
	}
}

// ─── Search / min / max ──────────────────────────────────────────────────────

func TestSearch(t *testing.T) {
	tr := intTree(5, 3, 8)
	if v, ok := tr.Search(8); !ok || v != 8 {
		t.Errorf("Search(8) = %d, %v", v, ok)
	}
	if _, ok := tr.Search(4); ok {
		t.Error("Search(4) must miss")
	}
}

func TestSearch_ProbeReturnsStoredValue(t *testing.T) {
	byName := bst.New(func(a, b item) int { return strings.Compare(a.name, b.name) })
	byName.Insert(item{name: "brioche", price: 320, tag: "stored"})
	got, ok := byName.Search(item{name: "brioche"})
	if !ok || got.tag != "stored" || got.price != 320 {
		t.Fatalf("Search = %+v, %v", got, ok)
	}
}

func TestFindMinMax(t *testing.T) {
	tr := intTree(5, 3, 8, 1, 9)
	if v, err := tr.FindMin(); err != nil || v != 1 {
		t.Errorf("FindMin = %d, %v", v, err)
	}
	if v, err := tr.FindMax(); err != nil || v != 9 {
		t.Errorf("FindMax = %d, %v", v, err)
	}

	empty := intTree()
	if _, err := empty.FindMin(); !errors.Is(err, container.ErrEmpty) {
		t.Errorf("FindMin empty: want ErrEmpty, got %v", err)
	}
	if _, err := empty.FindMax(); !errors.Is(err, container.ErrEmpty) {
		t.Errorf("FindMax empty: want ErrEmpty, got %v", err)
	}
}

// ─── Duplicates ──────────────────────────────────────────────────────────────

func TestDuplicates_RoutedRight(t *testing.T) {
	byName := bst.New(func(a, b item) int { return strings.Compare(a.name, b.name) })
	byName.Insert(item{name: "scone", tag: "first"})
	byName.Insert(item{name: "scone", tag: "second"})

	if byName.Len() != 2 {
		t.Fatalf("Len = %d, want 2", byName.Len())
	}
	// Pre-order puts the root first and its right child second.
	pre := byName.PreOrder()
	if pre[0].tag != "first" || pre[1].tag != "second" {
		t.Fatalf("PreOrder = %+v", pre)
	}
	got, ok := byName.Search(item{name: "scone"})
	if !ok || got.tag != "first" {
		t.Fatalf("Search returns the first match on the routing path, got %+v", got)
	}
	if !byName.Remove(item{name: "scone"}) {
		t.Fatal("Remove first duplicate")
	}
	got, ok = byName.Search(item{name: "scone"})
	if !ok || got.tag != "second" {
		t.Fatalf("second duplicate must remain reachable, got %+v, %v", got, ok)
	}
}

// ─── Removal ─────────────────────────────────────────────────────────────────

func TestRemove_Cases(t *testing.T) {
	tests := []struct {
		name   string
		remove int
		want   []int
	}{
		{"leaf", 20, []int{30, 40, 50, 60, 70, 80}},
		{"one child", 70, []int{20, 30, 40, 50, 60}},
		{"two children", 30, []int{20, 40, 50, 60, 70}},
		{"root", 50, []int{20, 30, 40, 60, 70}},
		{"absent", 99, []int{20, 30, 40, 50, 60, 70}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := intTree(50, 30, 70, 20, 40, 60)
			if tc.name == "leaf" {
				tr.Insert(80)
			}
			removed := tr.Remove(tc.remove)
			if removed != (tc.name != "absent") {
				t.Fatalf("Remove(%d) = %v", tc.remove, removed)
			}
			if got := tr.InOrder(); !equalInts(got, tc.want) {
				t.Fatalf("InOrder = %v, want %v", got, tc.want)
			}
			if tr.Len() != len(tc.want) {
				t.Fatalf("Len = %d, want %d", tr.Len(), len(tc.want))
			}
		})
	}
}

func TestRemove_RootTakesSuccessor(t *testing.T) {
	tr := intTree(50, 30, 70, 60, 80)
	tr.Remove(50)
	if got := tr.PreOrder(); !equalInts(got, []int{60, 30, 70, 80}) {
		t.Fatalf("PreOrder = %v, want root replaced by successor 60", got)
	}
}

func TestRemove_UntilEmpty(t *testing.T) {
	tr := intTree(2, 1, 3)
	for _, v := range []int{2, 1, 3} {
		tr.Remove(v)
	}
	if !tr.IsEmpty() || tr.Len() != 0 {
		t.Fatal("tree must be empty")
	}
}

// ─── LCA ─────────────────────────────────────────────────────────────────────

func TestLowestCommonAncestor(t *testing.T) {
	tr := intTree(50, 30, 70, 20, 40, 60, 80)
	tests := []struct {
		a, b int
		want int
		ok   bool
	}{
		{20, 40, 30, true},
		{20, 80, 50, true},
		{60, 80, 70, true},
		{30, 40, 30, true},
		{20, 99, 0, false},
	}
	for _, tc := range tests {
		got, ok := tr.LowestCommonAncestor(tc.a, tc.b)
		if ok != tc.ok || got != tc.want {
			t.Errorf("LCA(%d, %d) = %d, %v; want %d, %v", tc.a, tc.b, got, ok, tc.want, tc.ok)
		}
	}
}

// ─── Clone ───────────────────────────────────────────────────────────────────

func TestClone(t *testing.T) {
	tr := intTree(5, 3, 8)
	cp := tr.Clone()
	cp.Insert(1)
	if tr.Len() != 3 || cp.Len() != 4 {
		t.Fatalf("clone must be independent: %d / %d", tr.Len(), cp.Len())
	}
	if !equalInts(cp.PreOrder(), []int{5, 3, 1, 8}) {
		t.Fatalf("clone shape = %v", cp.PreOrder())
	}
}
