package objective

import (
	"errors"
	"testing"
)

func TestNewBuiltins(t *testing.T) {
	tests := []struct {
		name   string
		target []float64
		at     []float64
		want   float64
	}{
		{"sphere", nil, []float64{3, 4}, 25},
		{"sphere", nil, []float64{0, 0}, 0},
		{"shifted_sphere", []float64{3}, []float64{5}, 4},
		{"shifted_sphere", []float64{1, 2}, []float64{1, 2}, 0},
		{"rosenbrock", nil, []float64{1, 1}, 0},
		{"rosenbrock", nil, []float64{0, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := New(tt.name, tt.target)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.name, err)
			}
			if fn.Name() != tt.name {
				t.Errorf("Name = %q, want %q", fn.Name(), tt.name)
			}
			if got := fn.Evaluate(tt.at); got != tt.want {
				t.Errorf("Evaluate(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestNewUnknown(t *testing.T) {
	_, err := New("bogus", nil)
	if err == nil {
		t.Fatal("expected error for unknown objective")
	}
	var unknownErr *UnknownObjectiveError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected *UnknownObjectiveError, got %T", err)
	}
}

func TestShiftedSphereRequiresTarget(t *testing.T) {
	_, err := New("shifted_sphere", nil)
	var targetErr *InvalidTargetError
	if !errors.As(err, &targetErr) {
		t.Fatalf("expected *InvalidTargetError, got %v", err)
	}
}

func TestFuncAdapter(t *testing.T) {
	calls := 0
	fn := &Func{
		FuncName: "counter",
		Fn: func(x []float64) float64 {
			calls++
			return x[0]
		},
	}

	if got := fn.Evaluate([]float64{7}); got != 7 {
		t.Errorf("Evaluate = %v, want 7", got)
	}
	if fn.Name() != "counter" {
		t.Errorf("Name = %q, want counter", fn.Name())
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
