package features

import "testing"

func TestRunLengths(t *testing.T) {
	tests := []struct {
		name  string
		rates []float64
		want  []int
	}{
		{"empty", nil, []int{}},
		{"single", []float64{1}, []int{0}},
		{"example", []float64{1.00, 1.02, 1.01, 1.01, 1.05}, []int{0, 1, 1, 0, 1}},
		{"rising run", []float64{1, 2, 3, 4}, []int{0, 3, 3, 3}},
		{"falling then rising", []float64{5, 4, 3, 4, 5}, []int{0, 2, 2, 2, 2}},
		{"flat breaks run", []float64{1, 2, 2, 3, 4}, []int{0, 1, 0, 2, 2}},
		{"flat run", []float64{1, 1, 1}, []int{0, 0, 0}},
		{"alternating", []float64{1, 2, 1, 2}, []int{0, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runLengths(tt.rates)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d entries, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Index %d: got %d, want %d (all: %v)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

func TestDirection(t *testing.T) {
	got := direction([]float64{1.00, 1.02, 1.01, 1.01, 1.05})
	want := []int{0, 1, -1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}
