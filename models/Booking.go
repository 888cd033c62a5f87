package models

import (
	"time"

	"gorm.io/datatypes"
)

// Booking statuses. Bookings made through the site start as pending and are
// confirmed by the Stripe webhook; bookings imported from the PMS arrive
// already confirmed or completed.
type BookingStatus string

const (
	StatusPending           BookingStatus = "pending"
	StatusConfirmed         BookingStatus = "confirmed"
	StatusCompleted         BookingStatus = "completed"
	StatusCancelled         BookingStatus = "cancelled"
	StatusPartiallyRefunded BookingStatus = "partially_refunded"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// statusTransitions is the allowed edge set for Booking.Status. Anything not
// listed here is rejected at the boundary instead of written ad hoc.
var statusTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:           {StatusConfirmed, StatusCancelled},
	StatusConfirmed:         {StatusCompleted, StatusCancelled, StatusPartiallyRefunded},
	StatusCompleted:         {StatusCancelled, StatusPartiallyRefunded},
	StatusPartiallyRefunded: {StatusCancelled},
	StatusCancelled:         {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted},
	PaymentCompleted: {PaymentRefunded},
	PaymentRefunded:  {},
}

func (s BookingStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the status change is a legal edge.
// Writing the same status again is allowed so retried webhooks stay idempotent.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if p == next {
		return true
	}
	for _, allowed := range paymentTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BookingSource distinguishes bookings made on the site from ones imported
// through the PMS (Airbnb, Booking.com and other channels).
const (
	SourceDirect = "direct"
	SourcePMS    = "pms"
)

// Booking is the single durable entity of the server. IDs are uuids for
// direct bookings and "pms-<external id>" for bookings that originated in
// another channel, so webhook replays upsert instead of duplicating.
type Booking struct {
	ID            string `json:"id" gorm:"primaryKey;size:64"`
	Accommodation string `json:"accommodation" gorm:"size:32;index:idx_accommodation_dates"`

	GuestName  string `json:"guestName" gorm:"size:100"`
	GuestEmail string `json:"guestEmail" gorm:"size:254"`
	GuestPhone string `json:"guestPhone" gorm:"size:32"`

	CheckIn  time.Time `json:"checkIn" gorm:"type:date;index:idx_accommodation_dates"`
	CheckOut time.Time `json:"checkOut" gorm:"type:date"`

	Guests   int `json:"guests"`
	Children int `json:"children"`
	Pets     int `json:"pets"`

	TotalPrice float64 `json:"totalPrice"`
	Notes      string  `json:"notes" gorm:"type:text"`

	Status        BookingStatus `json:"status" gorm:"size:20;index"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"size:20;index"`
	Source        string        `json:"source" gorm:"size:10"`

	StripeSessionID string `json:"stripeSessionID,omitempty" gorm:"size:128;index"`
	StripePaymentID string `json:"stripePaymentID,omitempty" gorm:"size:128"`
	PMSBookingID    string `json:"pmsBookingID,omitempty" gorm:"size:64;index"`

	// Raw payload of the last PMS webhook that touched this row, kept for audits.
	PMSPayload datatypes.JSON `json:"-" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Overlaps applies the half-open range rule: the checkout day itself is free,
// so a stay ending on the 10th and one starting on the 10th can share a unit.
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return checkIn.Before(b.CheckOut) && checkOut.After(b.CheckIn)
}

// BlocksAvailability reports whether this booking holds its dates against
// other bookings. Pending rows hold dates only while their checkout session
// can still complete; cancelled and refunded rows release them.
func (b *Booking) BlocksAvailability() bool {
	if b.Status == StatusCancelled {
		return false
	}
	return b.PaymentStatus == PaymentPending || b.PaymentStatus == PaymentCompleted
}
