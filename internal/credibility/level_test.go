package credibility

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  Level
	}{
		{0, VeryLow},
		{19, VeryLow},
		{20, Low},
		{39, Low},
		{40, Medium},
		{59, Medium},
		{60, High},
		{79, High},
		{80, VeryHigh},
		{100, VeryHigh},
	}

	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestClassifyTotalAndMonotonic(t *testing.T) {
	t.Parallel()

	prev := -1
	for s := MinScore; s <= MaxScore; s++ {
		rank := Classify(s).Rank()
		if rank < 0 {
			t.Fatalf("Classify(%d) returned unknown level %q", s, Classify(s))
		}
		if rank < prev {
			t.Fatalf("Classify not monotonic at %d: rank %d after %d", s, rank, prev)
		}
		prev = rank
	}
}

func TestValidScore(t *testing.T) {
	t.Parallel()

	for _, s := range []int{-1, 101, 1000} {
		if ValidScore(s) {
			t.Errorf("ValidScore(%d) = true, want false", s)
		}
	}
	for _, s := range []int{0, 50, 100} {
		if !ValidScore(s) {
			t.Errorf("ValidScore(%d) = false, want true", s)
		}
	}
}
