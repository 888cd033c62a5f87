package services

import (
	"errors"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
)

// stubPMS scripts the PMS behavior per test.
type stubPMS struct {
	configured bool
	available  bool
	checkErr   error

	pushedIDs []string
	pushErr   error
	nextPMSID string

	cancelled []string
	cancelErr error

	fetchResults map[string][]models.Booking
	fetchErrs    map[string]error

	verifyErr error
}

func (s *stubPMS) IsConfigured() bool { return s.configured }

func (s *stubPMS) MappedAccommodations() []string {
	if s.fetchResults == nil && s.fetchErrs == nil {
		return []string{"cottage", "dome-pinot", "dome-rose"}
	}
	slugs := make(map[string]struct{})
	for k := range s.fetchResults {
		slugs[k] = struct{}{}
	}
	for k := range s.fetchErrs {
		slugs[k] = struct{}{}
	}
	ordered := make([]string, 0, len(slugs))
	for _, known := range []string{"cottage", "dome-pinot", "dome-rose"} {
		if _, ok := slugs[known]; ok {
			ordered = append(ordered, known)
		}
	}
	return ordered
}

func (s *stubPMS) AccommodationForProperty(propertyID string) (string, bool) {
	switch propertyID {
	case "101":
		return "dome-pinot", true
	case "102":
		return "dome-rose", true
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
	if s.pushErr != nil {
		return "", s.pushErr
	}
	s.pushedIDs = append(s.pushedIDs, b.ID)
	if s.nextPMSID != "" {
		return s.nextPMSID, nil
	}
	return "pms-generated-1", nil
}

func (s *stubPMS) CancelBooking(pmsBookingID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, pmsBookingID)
	return nil
}

func (s *stubPMS) FetchBookings(accommodation string, from, to time.Time) ([]models.Booking, error) {
	if err, ok := s.fetchErrs[accommodation]; ok {
		return nil, err
	}
	return s.fetchResults[accommodation], nil
}

func (s *stubPMS) VerifyCredentials() error {
	if !s.configured {
		return ErrPMSNotConfigured
	}
	return s.verifyErr
}

// stubProvider records checkout sessions and refunds.
type stubProvider struct {
	sessions   int
	sessionErr error

	refunds     []float64
	refundedIDs []string
	refundErr   error
}

func (p *stubProvider) CreateCheckoutSession(b *models.Booking) (*CheckoutSession, error) {
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	p.sessions++
	return &CheckoutSession{
		ID:  "cs_test_" + b.ID,
		URL: "https://checkout.stripe.example/c/pay/cs_test_" + b.ID,
	}, nil
}

func (p *stubProvider) Refund(paymentID string, amount float64) error {
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refundedIDs = append(p.refundedIDs, paymentID)
	p.refunds = append(p.refunds, amount)
	return nil
}

// stubNotifier counts confirmations.
type stubNotifier struct {
	confirmations int
	contactErr    error
}

func (n *stubNotifier) SendBookingConfirmation(b *models.Booking) error {
	n.confirmations++
	return nil
}

func (n *stubNotifier) RelayContactMessage(name, email, message string) error {
	return n.contactErr
}

var errPMSDown = errors.New("pms unreachable")

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
