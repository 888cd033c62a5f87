package services

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
)

// AvailabilityResult is the single yes/no verdict shown to a guest.
type AvailabilityResult struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// AvailabilityService combines the local conflict check with the PMS's live
// calendar. The local store always wins on conflict; the PMS check is
// fail-closed because other channels may have taken the nights already.
type AvailabilityService struct {
	Store storage.BookingStore
	PMS   PMSClient
	Now   func() time.Time
}

func NewAvailabilityService(store storage.BookingStore, pms PMSClient) *AvailabilityService {
	return &AvailabilityService{Store: store, PMS: pms, Now: time.Now}
}

func unavailable(reason string) AvailabilityResult {
	return AvailabilityResult{Available: false, Reason: reason}
}

// Check validates the request and resolves availability per the rules:
// known accommodation, party within capacity, sane future dates, seasonal
// minimum stay, no local paid conflict, and an explicit yes from the PMS
// when one is configured. guests <= 0 skips the capacity check (the public
// availability endpoint treats the count as optional).
func (s *AvailabilityService) Check(accommodation string, checkIn, checkOut time.Time, guests int) (AvailabilityResult, error) {
	acc, ok := models.Accommodations[accommodation]
	if !ok {
		return unavailable("Unknown accommodation"), nil
	}

	if guests > acc.MaxGuests {
		return unavailable(fmt.Sprintf("%s sleeps a maximum of %d guests", acc.Name, acc.MaxGuests)), nil
	}

	checkIn = dateOnly(checkIn)
	checkOut = dateOnly(checkOut)

	today := dateOnly(s.Now())
	if checkIn.Before(today) {
		return unavailable("Check-in date is in the past"), nil
	}
	if !checkOut.After(checkIn) {
		return unavailable("Check-out must be after check-in"), nil
	}

	if acc.MinNightsPeak > 0 && models.IsPeakMonth(int(checkIn.Month())) {
		nights := int(checkOut.Sub(checkIn).Hours() / 24)
		if nights < acc.MinNightsPeak {
			return unavailable(fmt.Sprintf(
				"%s requires a minimum %d-night stay from October to May", acc.Name, acc.MinNightsPeak)), nil
		}
	}

	conflicts, err := s.Store.FindBlocking(accommodation, checkIn, checkOut,
		[]models.PaymentStatus{models.PaymentCompleted})
	if err != nil {
		return AvailabilityResult{}, err
	}
	if len(conflicts) > 0 {
		return unavailable("Dates are already booked"), nil
	}

	if s.PMS == nil || !s.PMS.IsConfigured() {
		// Degraded mode: local data only. Acceptable for development, risky
		// in production where other channels sell the same nights.
		log.Printf("WARNING: PMS not configured, availability for %s resolved from local data only", accommodation)
		return AvailabilityResult{Available: true}, nil
	}

	available, err := s.PMS.CheckAvailability(accommodation, checkIn, checkOut)
	if err != nil {
		// Fail closed: an unreachable PMS means we cannot rule out a
		// booking from another channel.
		log.Printf("PMS availability check failed for %s: %v", accommodation, err)
		return unavailable("Availability cannot be confirmed right now, please try again later"), nil
	}
	if !available {
		return unavailable("Dates are not available"), nil
	}

	return AvailabilityResult{Available: true}, nil
}

// BlockedDates lists the calendar days held by pending or paid bookings in
// the window, plus days already in the past.
func (s *AvailabilityService) BlockedDates(accommodation string, from, to time.Time) ([]string, error) {
	from = dateOnly(from)
	to = dateOnly(to)

	bookings, err := s.Store.InRange(accommodation, from, to)
	if err != nil {
		return nil, err
	}

	blocked := make(map[string]struct{})
	today := dateOnly(s.Now())
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if d.Before(today) {
			blocked[d.Format(dateLayout)] = struct{}{}
		}
	}
	for _, booking := range bookings {
		for d := booking.CheckIn; d.Before(booking.CheckOut); d = d.AddDate(0, 0, 1) {
			if !d.Before(from) && d.Before(to) {
				blocked[d.Format(dateLayout)] = struct{}{}
			}
		}
	}

	dates := make([]string, 0, len(blocked))
	for d := range blocked {
		dates = append(dates, d)
	}
	sort.Strings(dates) // ISO dates sort lexicographically
	return dates, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
