package common

import (
	"errors"
	"testing"
)

func TestTopoSort_Order(t *testing.T) {
	order, err := TopoSort(3, func(i int) []int {
		switch i {
		case 0:
			return []int{2}
		case 1:
			return nil
		default:
			return nil
		}
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 1 and 2 are ready, 0 waits for 2
	exp := []int{1, 2, 0}
	for i := range exp {
		if order[i] != exp[i] {
			t.Fatalf("expected %v, got %v", exp, order)
		}
	}
}

func TestTopoSort_KeepsInsertionOrder(t *testing.T) {
	order, err := TopoSort(4, func(int) []int { return nil })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for i, v := range order {
		if i != v {
			t.Fatalf("expected identity order, got %v", order)
		}
	}
}

func TestTopoSort_Cycle(t *testing.T) {
	_, err := TopoSort(3, func(i int) []int {
		switch i {
		case 0:
			return []int{1}
		case 1:
			return []int{0}
		default:
			return nil
		}
	})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestTopoSort_OutOfRange(t *testing.T) {
	if _, err := TopoSort(1, func(int) []int { return []int{3} }); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
