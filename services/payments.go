package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/refund"
)

type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentProvider wraps the hosted checkout + refund surface of Stripe so
// services and tests can run against a stub.
type PaymentProvider interface {
	// CreateCheckoutSession opens a hosted payment page for the stay. All
	// reconciliation fields ride along as session metadata: the session is
	// the only state the payment webhook carries back.
	CreateCheckoutSession(b *models.Booking) (*CheckoutSession, error)

	// Refund refunds the payment. amount <= 0 means the full charge.
	Refund(paymentID string, amount float64) error
}

type stripeProvider struct {
	successURL string
	cancelURL  string
}

func NewStripeProviderFromEnv() PaymentProvider {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	base := strings.TrimRight(os.Getenv("SITE_URL"), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &stripeProvider{
		successURL: base + "/booking/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:  base + "/booking/cancelled",
	}
}

// toCents converts a GST-inclusive NZD amount to Stripe's integer unit.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (p *stripeProvider) CreateCheckoutSession(b *models.Booking) (*CheckoutSession, error) {
	acc := models.Accommodations[b.Accommodation]
	nights := int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(p.successURL),
		CancelURL:     stripe.String(p.cancelURL),
		CustomerEmail: stripe.String(b.GuestEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyNZD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(acc.Name),
						Description: stripe.String(fmt.Sprintf("%d night(s), %s to %s",
							nights, b.CheckIn.Format(dateLayout), b.CheckOut.Format(dateLayout))),
					},
					UnitAmount: stripe.Int64(toCents(b.TotalPrice)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}

	params.AddMetadata("booking_id", b.ID)
	params.AddMetadata("accommodation", b.Accommodation)
	params.AddMetadata("guest_name", b.GuestName)
	params.AddMetadata("guest_email", b.GuestEmail)
	params.AddMetadata("guest_phone", b.GuestPhone)
	params.AddMetadata("check_in", b.CheckIn.Format(dateLayout))
	params.AddMetadata("check_out", b.CheckOut.Format(dateLayout))
	params.AddMetadata("guests", fmt.Sprintf("%d", b.Guests))
	params.AddMetadata("notes", b.Notes)

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *stripeProvider) Refund(paymentID string, amount float64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentID),
	}
	if amount > 0 {
		params.Amount = stripe.Int64(toCents(amount))
	}
	_, err := refund.New(params)
	return err
}

var ErrNothingToRefund = errors.New("booking has no completed payment to refund")

// RefundService issues refunds and rolls booking state back accordingly.
type RefundService struct {
	Store    storage.BookingStore
	Provider PaymentProvider
	PMS      PMSClient
}

// Refund refunds amount (or the full total when amount <= 0). A full refund
// cancels the booking, releases its dates and best-effort cancels the PMS
// reservation; a partial refund marks it partially_refunded but the stay
// still happens, so its payment stays completed and the nights stay blocked.
// TotalPrice is preserved either way so the original sale stays on record.
func (s *RefundService) Refund(bookingID string, amount float64) (*models.Booking, error) {
	booking, err := s.Store.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.StripePaymentID == "" {
		return nil, ErrNothingToRefund
	}
	if amount < 0 || amount > booking.TotalPrice {
		return nil, fmt.Errorf("refund amount must be between 0 and %.2f", booking.TotalPrice)
	}

	full := amount == 0 || amount == booking.TotalPrice

	refundAmount := amount
	if full {
		refundAmount = 0
	}
	if err := s.Provider.Refund(booking.StripePaymentID, refundAmount); err != nil {
		return nil, fmt.Errorf("refund failed: %w", err)
	}

	next := models.StatusPartiallyRefunded
	if full {
		next = models.StatusCancelled
	}
	if !booking.Status.CanTransitionTo(next) {
		// The money has moved regardless; record the terminal state.
		log.Printf("refund: unexpected transition %s -> %s for booking %s", booking.Status, next, booking.ID)
	}
	booking.Status = next
	if full {
		booking.PaymentStatus = models.PaymentRefunded
	}

	if err := s.Store.Save(booking); err != nil {
		return nil, err
	}

	if full && booking.PMSBookingID != "" && s.PMS != nil && s.PMS.IsConfigured() {
		if err := s.PMS.CancelBooking(booking.PMSBookingID); err != nil {
			log.Printf("PMS cancel failed for booking %s (pms id %s): %v", booking.ID, booking.PMSBookingID, err)
		}
	}

	return booking, nil
}
