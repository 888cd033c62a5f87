package services

import (
	"fmt"
	"log"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/cache"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
)

// SyncService re-imports PMS bookings into the local store and re-pushes
// local bookings the PMS never received.
type SyncService struct {
	Store storage.BookingStore
	PMS   PMSClient
	Cache cache.BlockedDatesCache
	Now   func() time.Time
}

func NewSyncService(store storage.BookingStore, pms PMSClient, c cache.BlockedDatesCache) *SyncService {
	return &SyncService{Store: store, PMS: pms, Cache: c, Now: time.Now}
}

type AccommodationSyncReport struct {
	Accommodation string `json:"accommodation"`
	Imported      int    `json:"imported"`
	Updated       int    `json:"updated"`
	Errored       int    `json:"errored"`
}

type SyncReport struct {
	Accommodations []AccommodationSyncReport `json:"accommodations"`
	Errors         []string                  `json:"errors"`
}

// BulkSync pulls a rolling 12-month window of PMS bookings for every mapped
// accommodation and upserts them. One accommodation failing does not stop
// the others; failures are collected into the report. The blocked-dates
// cache is cleared afterwards so calendars reflect the import immediately.
func (s *SyncService) BulkSync() (*SyncReport, error) {
	if s.PMS == nil || !s.PMS.IsConfigured() {
		return nil, ErrPMSNotConfigured
	}

	report := &SyncReport{Errors: []string{}}

	from := dateOnly(s.Now())
	to := from.AddDate(1, 0, 0)

	for _, accommodation := range s.PMS.MappedAccommodations() {
		entry := AccommodationSyncReport{Accommodation: accommodation}

		bookings, err := s.PMS.FetchBookings(accommodation, from, to)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s: fetch failed: %v", accommodation, err))
			report.Accommodations = append(report.Accommodations, entry)
			continue
		}

		for i := range bookings {
			booking := bookings[i]
			created, err := s.Store.Upsert(&booking)
			if err != nil {
				entry.Errored++
				report.Errors = append(report.Errors,
					fmt.Sprintf("%s: upsert %s: %v", accommodation, booking.ID, err))
				continue
			}
			if created {
				entry.Imported++
			} else {
				entry.Updated++
			}
		}

		report.Accommodations = append(report.Accommodations, entry)
	}

	if s.Cache != nil {
		s.Cache.InvalidateAll()
	}

	return report, nil
}

type RetrySyncResult struct {
	Synced       bool   `json:"synced"`
	Message      string `json:"message"`
	PMSBookingID string `json:"pmsBookingID,omitempty"`
}

// RetrySync re-attempts the PMS push for a paid booking that never made it
// across (for example because the PMS was down when the payment webhook
// fired). Already-synced and unpaid bookings are a reported no-op.
func (s *SyncService) RetrySync(bookingID string) (*RetrySyncResult, error) {
	booking, err := s.Store.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.PMSBookingID != "" {
		return &RetrySyncResult{Synced: false, Message: "already synced", PMSBookingID: booking.PMSBookingID}, nil
	}
	if booking.PaymentStatus != models.PaymentCompleted {
		return &RetrySyncResult{Synced: false, Message: "payment not completed"}, nil
	}
	if s.PMS == nil || !s.PMS.IsConfigured() {
		return nil, ErrPMSNotConfigured
	}

	pmsID, err := s.PMS.PushBooking(booking)
	if err != nil {
		return nil, fmt.Errorf("pms push failed: %w", err)
	}

	booking.PMSBookingID = pmsID
	if err := s.Store.Save(booking); err != nil {
		// The PMS now has the booking; losing the reference locally is
		// recoverable by running retry again (the upsert path matches it).
		log.Printf("retry-sync: saved to PMS as %s but local update failed for %s: %v", pmsID, bookingID, err)
		return nil, err
	}

	return &RetrySyncResult{Synced: true, Message: "pushed to PMS", PMSBookingID: pmsID}, nil
}
