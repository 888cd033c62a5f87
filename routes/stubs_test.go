package routes

import (
	"testing"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/services"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
)

type stubPMS struct {
	configured bool
	available  bool
	checkErr   error
	pushedIDs  []string
	nextPMSID  string
}

func (s *stubPMS) IsConfigured() bool            { return s.configured }
func (s *stubPMS) MappedAccommodations() []string { return []string{"cottage", "dome-pinot", "dome-rose"} }

func (s *stubPMS) AccommodationForProperty(propertyID string) (string, bool) {
	switch propertyID {
	case "101":
		return "dome-pinot", true
	case "103":
		return "cottage", true
	}
	return "", false
}

func (s *stubPMS) CheckAvailability(accommodation string, checkIn, checkOut time.Time) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.available, nil
}

func (s *stubPMS) PushBooking(b *models.Booking) (string, error) {
	s.pushedIDs = append(s.pushedIDs, b.ID)
	if s.nextPMSID != "" {
		return s.nextPMSID, nil
	}
	return "4242", nil
}

func (s *stubPMS) CancelBooking(pmsBookingID string) error { return nil }

func (s *stubPMS) FetchBookings(accommodation string, from, to time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (s *stubPMS) VerifyCredentials() error {
	if !s.configured {
		return services.ErrPMSNotConfigured
	}
	return nil
}

type stubProvider struct {
	sessions int
	err      error
}

func (p *stubProvider) CreateCheckoutSession(b *models.Booking) (*services.CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.sessions++
	return &services.CheckoutSession{
		ID:  "cs_test_" + b.ID,
		URL: "https://checkout.stripe.example/c/pay/cs_test_" + b.ID,
	}, nil
}

func (p *stubProvider) Refund(paymentID string, amount float64) error { return nil }

type stubNotifier struct {
	confirmations int
	contacts      int
}

func (n *stubNotifier) SendBookingConfirmation(b *models.Booking) error {
	n.confirmations++
	return nil
}

func (n *stubNotifier) RelayContactMessage(name, email, message string) error {
	n.contacts++
	return nil
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustSeedPending(t *testing.T, store storage.BookingStore, sessionID string) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:              "seed-" + sessionID,
		Accommodation:   "dome-pinot",
		GuestName:       "Seed Guest",
		GuestEmail:      "seed@example.com",
		CheckIn:         mustDate("2025-07-01"),
		CheckOut:        mustDate("2025-07-03"),
		Guests:          2,
		TotalPrice:      560,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		Source:          models.SourceDirect,
		StripeSessionID: sessionID,
	}
	if err := store.CreateLocked(booking); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}
