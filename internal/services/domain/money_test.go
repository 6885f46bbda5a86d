package domain

import (
	"testing"
	"time"

	"marketplace_backend/platform/apperr"
)

func TestTotalPriceCents(t *testing.T) {
	cases := map[int64]int64{
		100000: 102000, // 1000.00 -> 1020.00
		50000:  51000,  // 500.00 -> 510.00
		1:      1,      // 0.0102 rounds down
		25:     26,     // 0.255 rounds half-up
		12345:  12592,  // 123.45 * 1.02 = 125.919
	}
	for quoted, want := range cases {
		if got := TotalPriceCents(quoted); got != want {
			t.Fatalf("TotalPriceCents(%d): expected %d, got %d", quoted, want, got)
		}
	}
}

func TestNextRating(t *testing.T) {
	avg, count, err := NextRating(400, 2, 5)
	if err != nil {
		t.Fatalf("next rating: %v", err)
	}
	if avg != 433 || count != 3 {
		t.Fatalf("expected 4.33 over 3 reviews, got %d over %d", avg, count)
	}

	avg, count, _ = NextRating(0, 0, 4)
	if avg != 400 || count != 1 {
		t.Fatalf("expected first review to set 4.00, got %d over %d", avg, count)
	}

	// (4.33*3 + 5) / 4 = 4.4975 -> 4.50
	if avg, _, _ := NextRating(433, 3, 5); avg != 450 {
		t.Fatalf("expected half-up to 4.50, got %d", avg)
	}

	for _, bad := range []int{0, 6} {
		if _, _, err := NextRating(400, 2, bad); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("rating %d: expected validation error, got %v", bad, err)
		}
	}
}

func TestWarrantyDeadline(t *testing.T) {
	completed := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	explicit := completed.Add(10 * 24 * time.Hour)

	if d, ok := (Service{CompletedAt: &completed}).WarrantyDeadline(); !ok || !d.Equal(completed.Add(WarrantyPeriod)) {
		t.Fatalf("expected derived deadline, got %v %v", d, ok)
	}
	if d, ok := (Service{CompletedAt: &completed, WarrantyExpiresAt: &explicit}).WarrantyDeadline(); !ok || !d.Equal(explicit) {
		t.Fatalf("expected stored deadline, got %v", d)
	}
	if _, ok := (Service{}).WarrantyDeadline(); ok {
		t.Fatalf("expected no deadline without completion")
	}
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{0: "0.00", 51000: "510.00", 102000: "1020.00", 433: "4.33", 5: "0.05", -250: "-2.50"}
	for in, want := range cases {
		if got := FormatCents(in); got != want {
			t.Fatalf("FormatCents(%d): expected %s, got %s", in, want, got)
		}
	}
}
