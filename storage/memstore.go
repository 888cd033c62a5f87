package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
)

// MemoryBookingStore is a mutex-guarded in-memory BookingStore. Tests use it
// in place of Postgres; the per-accommodation advisory lock degenerates to
// the single mutex, which gives the same exclusion.
type MemoryBookingStore struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
}

func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{bookings: make(map[string]models.Booking)}
}

func (s *MemoryBookingStore) CreateLocked(b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.bookings {
		if other.Accommodation != b.Accommodation {
			continue
		}
		if other.Status == models.StatusCancelled {
			continue
		}
		if other.PaymentStatus != models.PaymentPending && other.PaymentStatus != models.PaymentCompleted {
			continue
		}
		if other.Overlaps(b.CheckIn, b.CheckOut) {
			return ErrConflict
		}
	}

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bookings[b.ID] = *b
	return nil
}

func (s *MemoryBookingStore) GetByID(id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &booking, nil
}

func (s *MemoryBookingStore) GetBySessionID(sessionID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, booking := range s.bookings {
		if booking.StripeSessionID == sessionID {
			b := booking
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryBookingStore) List(filter ListFilter) ([]models.Booking, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Booking
	for _, booking := range s.bookings {
		if filter.Accommodation != "" && booking.Accommodation != filter.Accommodation {
			continue
		}
		if filter.Status != "" && string(booking.Status) != filter.Status {
			continue
		}
		matched = append(matched, booking)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CheckIn.After(matched[j].CheckIn)
	})

	total := int64(len(matched))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return []models.Booking{}, total, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryBookingStore) Save(b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.UpdatedAt = time.Now()
	s.bookings[b.ID] = *b
	return nil
}

func (s *MemoryBookingStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *MemoryBookingStore) Upsert(b *models.Booking) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.bookings[b.ID]; ok {
		b.CreatedAt = existing.CreatedAt
		b.UpdatedAt = time.Now()
		s.bookings[b.ID] = *b
		return false, nil
	}
	if b.PMSBookingID != "" {
		for id, existing := range s.bookings {
			if existing.PMSBookingID == b.PMSBookingID {
				b.ID = id
				b.CreatedAt = existing.CreatedAt
				b.UpdatedAt = time.Now()
				s.bookings[id] = *b
				return false, nil
			}
		}
	}

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bookings[b.ID] = *b
	return true, nil
}

func (s *MemoryBookingStore) FindBlocking(accommodation string, checkIn, checkOut time.Time, payment []models.PaymentStatus) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Booking
	for _, booking := range s.bookings {
		if booking.Accommodation != accommodation || booking.Status == models.StatusCancelled {
			continue
		}
		paymentOK := false
		for _, p := range payment {
			if booking.PaymentStatus == p {
				paymentOK = true
				break
			}
		}
		if paymentOK && booking.Overlaps(checkIn, checkOut) {
			matched = append(matched, booking)
		}
	}
	return matched, nil
}

func (s *MemoryBookingStore) InRange(accommodation string, from, to time.Time) ([]models.Booking, error) {
	return s.FindBlocking(accommodation, from, to,
		[]models.PaymentStatus{models.PaymentPending, models.PaymentCompleted})
}

func (s *MemoryBookingStore) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Stats{ByStatus: map[string]int64{}}
	today := time.Now().Truncate(24 * time.Hour)
	for _, booking := range s.bookings {
		stats.Total++
		stats.ByStatus[string(booking.Status)]++
		if !booking.CheckIn.Before(today) &&
			(booking.Status == models.StatusConfirmed || booking.Status == models.StatusPending) {
			stats.UpcomingCheckIns++
		}
		if booking.PaymentStatus == models.PaymentCompleted {
			stats.Revenue += booking.TotalPrice
		}
	}
	return stats, nil
}
