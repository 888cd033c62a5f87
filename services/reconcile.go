package services

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/utils"
)

// ReconcileService applies asynchronous webhook events to the local store.
// Both channels are idempotent: replaying an event leaves one row with the
// latest fields.
type ReconcileService struct {
	Store    storage.BookingStore
	PMS      PMSClient
	Notifier Notifier
}

// PaymentCompleted marks the booking behind the checkout session as paid and
// confirmed, then pushes it to the PMS and emails the guest. The push and
// the email are best-effort: the payment already happened, so failures are
// logged and left to the admin retry-sync operation.
// A missing booking is not an error; the caller acknowledges the event so
// Stripe does not redeliver forever.
func (s *ReconcileService) PaymentCompleted(sessionID, paymentID string) {
	booking, err := s.Store.GetBySessionID(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("payment webhook: no local booking for session %s, acknowledging", sessionID)
			return
		}
		log.Printf("payment webhook: lookup failed for session %s: %v", sessionID, err)
		return
	}

	if booking.PaymentStatus == models.PaymentCompleted {
		log.Printf("payment webhook: booking %s already reconciled, replay ignored", booking.ID)
		return
	}

	if !booking.Status.CanTransitionTo(models.StatusConfirmed) {
		// The booking was cancelled while its checkout session was still
		// live. Record the charge so it can be refunded, but do not
		// resurrect the booking, push it to the PMS or mail the guest.
		booking.PaymentStatus = models.PaymentCompleted
		booking.StripePaymentID = paymentID
		if err := s.Store.Save(booking); err != nil {
			log.Printf("payment webhook: failed to record late payment %s on %s booking %s: %v",
				paymentID, booking.Status, booking.ID, err)
			return
		}
		log.Printf("payment webhook: booking %s is %s, payment %s recorded for refund only",
			booking.ID, booking.Status, paymentID)
		return
	}

	booking.PaymentStatus = models.PaymentCompleted
	booking.Status = models.StatusConfirmed
	booking.StripePaymentID = paymentID

	if err := s.Store.Save(booking); err != nil {
		log.Printf("payment webhook: failed to persist booking %s: %v", booking.ID, err)
		return
	}

	if s.PMS != nil && s.PMS.IsConfigured() {
		pmsID, err := s.PMS.PushBooking(booking)
		if err != nil {
			log.Printf("payment webhook: PMS push failed for booking %s (retry-sync can recover): %v", booking.ID, err)
		} else {
			booking.PMSBookingID = pmsID
			if err := s.Store.Save(booking); err != nil {
				log.Printf("payment webhook: failed to store PMS id %s on booking %s: %v", pmsID, booking.ID, err)
			}
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.SendBookingConfirmation(booking); err != nil {
			log.Printf("payment webhook: confirmation email failed for booking %s: %v", booking.ID, err)
		}
	}
}

// PMSWebhookData is the payload of a PMS booking.created / booking.updated
// event. Field names follow the PMS webhook format, which differs slightly
// from its REST list format.
type PMSWebhookData struct {
	BookingID  json.Number `json:"bookingId"`
	PropertyID string      `json:"propertyId"`
	GuestName  string      `json:"guestName"`
	GuestEmail string      `json:"guestEmail"`
	GuestPhone string      `json:"guestPhone"`
	Arrival    string      `json:"arrival"`
	Departure  string      `json:"departure"`
	Adults     int         `json:"adults"`
	Children   int         `json:"children"`
	Total      float64     `json:"totalAmount"`
	Status     string      `json:"status"`
	Notes      string      `json:"notes"`
	Channel    string      `json:"channel"`
}

var errUnusableEvent = errors.New("pms event missing booking id or dates")

// UpsertFromPMSEvent stores a booking made through another channel. Guest
// strings are sanitized before they touch the database; the upsert key is
// the prefixed PMS id, so redeliveries overwrite rather than duplicate.
func (s *ReconcileService) UpsertFromPMSEvent(data PMSWebhookData, accommodation string, rawPayload []byte) error {
	if data.BookingID.String() == "" {
		return errUnusableEvent
	}
	checkIn, errIn := time.Parse(dateLayout, data.Arrival)
	checkOut, errOut := time.Parse(dateLayout, data.Departure)
	if errIn != nil || errOut != nil {
		return errUnusableEvent
	}

	guests := data.Adults
	if guests == 0 {
		guests = 1
	}

	status := models.StatusConfirmed
	payment := models.PaymentCompleted
	if data.Status == "cancelled" || data.Status == "canceled" {
		status = models.StatusCancelled
		payment = models.PaymentRefunded
	}

	notes := utils.SanitizeString(data.Notes)
	if data.Channel != "" {
		notes = utils.SanitizeString(data.Channel) + ": " + notes
	}

	booking := models.Booking{
		ID:            "pms-" + data.BookingID.String(),
		Accommodation: accommodation,
		GuestName:     utils.SanitizeString(data.GuestName),
		GuestEmail:    utils.SanitizeString(data.GuestEmail),
		GuestPhone:    utils.SanitizeString(data.GuestPhone),
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        guests,
		Children:      data.Children,
		TotalPrice:    data.Total,
		Notes:         notes,
		Status:        status,
		PaymentStatus: payment,
		Source:        models.SourcePMS,
		PMSBookingID:  data.BookingID.String(),
		PMSPayload:    rawPayload,
	}

	_, err := s.Store.Upsert(&booking)
	return err
}
