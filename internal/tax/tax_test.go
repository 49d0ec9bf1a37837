package tax

import "testing"

func TestComputeStandardRate(t *testing.T) {
	got, err := Compute(1499.00, 0.18)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if got.Tax != 269.82 {
		t.Fatalf("expected tax 269.82, got %v", got.Tax)
	}
	if got.Total != 1768.82 {
		t.Fatalf("expected total 1768.82, got %v", got.Total)
	}
	if got.Base != 1499.00 {
		t.Fatalf("expected base 1499.00, got %v", got.Base)
	}
}

func TestComputeZeroBase(t *testing.T) {
	got, err := Compute(0, 0.18)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if got.Tax != 0 || got.Total != 0 {
		t.Fatalf("expected zero breakdown, got %+v", got)
	}
}

func TestComputeZeroRate(t *testing.T) {
	got, err := Compute(999.99, 0)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if got.Tax != 0 {
		t.Fatalf("expected zero tax, got %v", got.Tax)
	}
	if got.Total != 999.99 {
		t.Fatalf("expected total 999.99, got %v", got.Total)
	}
}

func TestComputeRounding(t *testing.T) {
	cases := []struct {
		base  float64
		rate  float64
		tax   float64
		total float64
	}{
		{100.00, 0.18, 18.00, 118.00},
		{33.33, 0.18, 6.00, 39.33},
		{0.01, 0.18, 0.00, 0.01},
		{10.05, 0.125, 1.26, 11.31},
	}

	for _, tc := range cases {
		got, err := Compute(tc.base, tc.rate)
		if err != nil {
			t.Fatalf("Compute(%v, %v) returned error: %v", tc.base, tc.rate, err)
		}
		if got.Tax != tc.tax {
			t.Errorf("Compute(%v, %v) tax = %v, want %v", tc.base, tc.rate, got.Tax, tc.tax)
		}
		if got.Total != tc.total {
			t.Errorf("Compute(%v, %v) total = %v, want %v", tc.base, tc.rate, got.Total, tc.total)
		}
	}
}

func TestComputeNegativeBase(t *testing.T) {
	if _, err := Compute(-1, 0.18); err != ErrNegativeBase {
		t.Fatalf("expected ErrNegativeBase, got %v", err)
	}
}
