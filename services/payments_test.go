package services

import (
	"errors"
	"testing"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
)

func refundable(id string, total float64) *models.Booking {
	b := paidBooking(id, "dome-pinot", "2025-07-01", "2025-07-03")
	b.TotalPrice = total
	b.StripePaymentID = "pi_" + id
	b.PMSBookingID = "900" + id
	return b
}

func TestRefundFull(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(refundable("b1", 560))

	provider := &stubProvider{}
	pms := &stubPMS{configured: true}
	svc := &RefundService{Store: store, Provider: provider, PMS: pms}

	booking, err := svc.Refund("b1", 0)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if booking.Status != models.StatusCancelled {
		t.Fatalf("full refund status = %s, want cancelled", booking.Status)
	}
	if booking.PaymentStatus != models.PaymentRefunded {
		t.Fatalf("payment status = %s, want refunded", booking.PaymentStatus)
	}
	if booking.TotalPrice != 560 {
		t.Fatalf("total price must be preserved, got %.2f", booking.TotalPrice)
	}
	if len(pms.cancelled) != 1 || pms.cancelled[0] != "900b1" {
		t.Fatalf("expected PMS cancellation, got %v", pms.cancelled)
	}
	if len(provider.refunds) != 1 || provider.refunds[0] != 0 {
		t.Fatalf("expected one full refund call, got %v", provider.refunds)
	}
}

func TestRefundExplicitFullAmount(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(refundable("b1", 560))

	svc := &RefundService{Store: store, Provider: &stubProvider{}, PMS: &stubPMS{configured: true}}

	booking, err := svc.Refund("b1", 560)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if booking.Status != models.StatusCancelled {
		t.Fatalf("refunding the exact total must cancel, got %s", booking.Status)
	}
}

func TestRefundPartial(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(refundable("b1", 560))

	provider := &stubProvider{}
	pms := &stubPMS{configured: true}
	svc := &RefundService{Store: store, Provider: provider, PMS: pms}

	booking, err := svc.Refund("b1", 100)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if booking.Status != models.StatusPartiallyRefunded {
		t.Fatalf("partial refund status = %s, want partially_refunded", booking.Status)
	}
	if booking.PaymentStatus != models.PaymentCompleted {
		t.Fatalf("payment status = %s, the stay still happens so it must stay completed", booking.PaymentStatus)
	}
	if booking.TotalPrice != 560 {
		t.Fatalf("total price must be preserved, got %.2f", booking.TotalPrice)
	}
	if len(pms.cancelled) != 0 {
		t.Fatalf("partial refund must not cancel the PMS reservation")
	}
	if len(provider.refunds) != 1 || provider.refunds[0] != 100 {
		t.Fatalf("expected partial refund of 100, got %v", provider.refunds)
	}
}

func TestPartialRefundKeepsDatesBlocked(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(refundable("b1", 560))

	svc := &RefundService{Store: store, Provider: &stubProvider{}, PMS: &stubPMS{configured: true}}
	if _, err := svc.Refund("b1", 100); err != nil {
		t.Fatalf("refund: %v", err)
	}

	// The guest still arrives; nobody else may book the same nights.
	availability := newAvailability(store, &stubPMS{configured: true, available: true})
	result, err := availability.Check("dome-pinot", mustDate("2025-07-01"), mustDate("2025-07-03"), 2)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if result.Available {
		t.Fatalf("partially refunded stay must keep blocking its dates")
	}

	if err := store.CreateLocked(paidBooking("b2", "dome-pinot", "2025-07-01", "2025-07-03")); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("insert over a partially refunded stay must conflict, got %v", err)
	}
}

func TestFullRefundReleasesDates(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(refundable("b1", 560))

	svc := &RefundService{Store: store, Provider: &stubProvider{}, PMS: &stubPMS{configured: true}}
	if _, err := svc.Refund("b1", 0); err != nil {
		t.Fatalf("refund: %v", err)
	}

	if err := store.CreateLocked(paidBooking("b2", "dome-pinot", "2025-07-01", "2025-07-03")); err != nil {
		t.Fatalf("cancelled stay must release its dates, got %v", err)
	}
}

func TestRefundWithoutPayment(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(pendingBooking("b1", "cs_x"))

	svc := &RefundService{Store: store, Provider: &stubProvider{}, PMS: &stubPMS{configured: true}}

	if _, err := svc.Refund("b1", 0); !errors.Is(err, ErrNothingToRefund) {
		t.Fatalf("expected ErrNothingToRefund, got %v", err)
	}
}

func TestRefundProviderFailure(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(refundable("b1", 560))

	svc := &RefundService{
		Store:    store,
		Provider: &stubProvider{refundErr: errors.New("stripe down")},
		PMS:      &stubPMS{configured: true},
	}

	if _, err := svc.Refund("b1", 0); err == nil {
		t.Fatalf("expected provider failure to surface")
	}

	// State must be untouched when the provider call fails.
	booking, _ := store.GetByID("b1")
	if booking.Status != models.StatusConfirmed || booking.PaymentStatus != models.PaymentCompleted {
		t.Fatalf("state mutated despite refund failure: %s/%s", booking.Status, booking.PaymentStatus)
	}
}

func TestRefundAmountBounds(t *testing.T) {
	store := storage.NewMemoryBookingStore()
	store.CreateLocked(refundable("b1", 560))

	svc := &RefundService{Store: store, Provider: &stubProvider{}, PMS: &stubPMS{configured: true}}

	if _, err := svc.Refund("b1", 600); err == nil {
		t.Fatalf("expected refund above total to be rejected")
	}
}
