package models

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to BookingStatus }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusPartiallyRefunded},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusPartiallyRefunded},
		{StatusConfirmed, StatusConfirmed}, // replayed webhook
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to BookingStatus }{
		{StatusCancelled, StatusConfirmed},
		{StatusCancelled, StatusPending},
		{StatusCompleted, StatusPending},
		{StatusConfirmed, StatusPending},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPartiallyRefunded},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	if !PaymentPending.CanTransitionTo(PaymentCompleted) {
		t.Errorf("pending -> completed should be allowed")
	}
	if !PaymentCompleted.CanTransitionTo(PaymentRefunded) {
		t.Errorf("completed -> refunded should be allowed")
	}
	if PaymentRefunded.CanTransitionTo(PaymentCompleted) {
		t.Errorf("refunded -> completed should be rejected")
	}
	if PaymentPending.CanTransitionTo(PaymentRefunded) {
		t.Errorf("pending -> refunded should be rejected")
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	booking := &Booking{CheckIn: date("2024-05-07"), CheckOut: date("2024-05-10")}

	// The checkout day is free for a same-day turnover, in both directions.
	if booking.Overlaps(date("2024-05-10"), date("2024-05-12")) {
		t.Errorf("new check-in on checkout day must not overlap")
	}
	if booking.Overlaps(date("2024-05-05"), date("2024-05-07")) {
		t.Errorf("new checkout on check-in day must not overlap")
	}

	if !booking.Overlaps(date("2024-05-09"), date("2024-05-11")) {
		t.Errorf("one shared night must overlap")
	}
	if !booking.Overlaps(date("2024-05-01"), date("2024-05-30")) {
		t.Errorf("enclosing range must overlap")
	}
	if !booking.Overlaps(date("2024-05-08"), date("2024-05-09")) {
		t.Errorf("enclosed range must overlap")
	}
}

func TestBlocksAvailability(t *testing.T) {
	cases := []struct {
		status  BookingStatus
		payment PaymentStatus
		want    bool
	}{
		{StatusPending, PaymentPending, true},
		{StatusConfirmed, PaymentCompleted, true},
		{StatusCancelled, PaymentRefunded, false},
		{StatusCancelled, PaymentCompleted, false},
		// A partial refund keeps the payment completed; the stay still
		// happens and holds its nights.
		{StatusPartiallyRefunded, PaymentCompleted, true},
	}
	for _, tc := range cases {
		b := &Booking{Status: tc.status, PaymentStatus: tc.payment}
		if b.BlocksAvailability() != tc.want {
			t.Errorf("%s/%s blocks = %v, want %v", tc.status, tc.payment, !tc.want, tc.want)
		}
	}
}

func TestIsPeakMonth(t *testing.T) {
	peak := []int{10, 11, 12, 1, 2, 3, 4, 5}
	for _, m := range peak {
		if !IsPeakMonth(m) {
			t.Errorf("month %d should be peak", m)
		}
	}
	for _, m := range []int{6, 7, 8, 9} {
		if IsPeakMonth(m) {
			t.Errorf("month %d should not be peak", m)
		}
	}
}
