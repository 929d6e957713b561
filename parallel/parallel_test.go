package parallel

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/exp/slices"
)

type adder struct {
	id   int
	fail bool
}

func (a adder) Run(ctx context.Context, section Section, sh []int) ([]int, error) {
	if a.fail {
		return nil, errors.New("failed")
	}
	out := slices.Clone(sh)
	return append(out, a.id*int(section)), nil
}

func TestLocalParallel(t *testing.T) {
	top := NewLocal[[]int](adder{id: 1}, adder{id: 2}, adder{id: 3})
	res, err := top.Parallel(context.Background(), 10, []int{0})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := [][]int{{0, 10}, {0, 20}, {0, 30}}
	for i := range want {
		if !slices.Equal(res[i], want[i]) {
			t.Errorf("Worker %v: expected %v. Got: %v", i, want[i], res[i])
		}
	}

	sum := Fold(res, func(a, b []int) []int { return append(slices.Clone(a), b[1:]...) })
	if !slices.Equal(sum, []int{0, 10, 20, 30}) {
		t.Errorf("Unexpected fold: %v", sum)
	}
}

func TestLocalRing(t *testing.T) {
	top := NewLocal[[]int](adder{id: 1}, adder{id: 2}, adder{id: 3})
	res, err := top.Ring(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !slices.Equal(res, []int{1, 2, 3}) {
		t.Fatalf("Expected the ring to visit workers in order. Got: %v", res)
	}
}

func TestLocalErrors(t *testing.T) {
	top := NewLocal[[]int](adder{id: 1}, adder{id: 2, fail: true})
	if _, err := top.Parallel(context.Background(), 1, nil); err == nil {
		t.Errorf("Expected the failure of worker 1 to be reported")
	}
	if _, err := top.Ring(context.Background(), 1, nil); err == nil {
		t.Errorf("Expected the failure of worker 1 to be reported")
	}
	empty := NewLocal[[]int]()
	if _, err := empty.Parallel(context.Background(), 1, nil); !errors.Is(err, ErrNoPeers) {
		t.Errorf("Expected ErrNoPeers. Got: %v", err)
	}
}
