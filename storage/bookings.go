package storage

import (
	"errors"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("booking not found")
	ErrConflict = errors.New("dates no longer available")
)

type ListFilter struct {
	Accommodation string
	Status        string
	Page          int
	PerPage       int
}

type Stats struct {
	Total            int64            `json:"total"`
	ByStatus         map[string]int64 `json:"byStatus"`
	UpcomingCheckIns int64            `json:"upcomingCheckIns"`
	Revenue          float64          `json:"revenue"`
}

// BookingStore abstracts the bookings table so route handlers and services
// can be exercised against the in-memory implementation in tests.
type BookingStore interface {
	// CreateLocked inserts the booking after re-checking the overlap
	// invariant under a per-accommodation lock. Returns ErrConflict when a
	// pending or paid booking already holds any of the nights.
	CreateLocked(b *models.Booking) error

	GetByID(id string) (*models.Booking, error)
	GetBySessionID(sessionID string) (*models.Booking, error)
	List(filter ListFilter) ([]models.Booking, int64, error)
	Save(b *models.Booking) error
	Delete(id string) error

	// Upsert writes a PMS-originated booking keyed by its id or its PMS
	// booking id, whichever already exists. Reports whether a new row was
	// created. Replays of the same payload are idempotent.
	Upsert(b *models.Booking) (created bool, err error)

	// FindBlocking returns bookings on the accommodation whose payment
	// status is one of the given set, excluding cancelled rows, overlapping
	// the half-open [checkIn, checkOut) range.
	FindBlocking(accommodation string, checkIn, checkOut time.Time, payment []models.PaymentStatus) ([]models.Booking, error)

	// InRange returns blocking bookings intersecting the window, for the
	// blocked-dates calendar.
	InRange(accommodation string, from, to time.Time) ([]models.Booking, error)

	Stats() (*Stats, error)
}

type gormBookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) BookingStore {
	return &gormBookingStore{db: db}
}

func (s *gormBookingStore) CreateLocked(b *models.Booking) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Serializes concurrent check+insert per accommodation; the lock is
		// released with the transaction. Closes the race between the public
		// availability check and this insert.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", b.Accommodation).Error; err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.Booking{}).
			Where("accommodation = ?", b.Accommodation).
			Where("check_in < ? AND check_out > ?", b.CheckOut, b.CheckIn).
			Where("payment_status IN ?", []models.PaymentStatus{models.PaymentPending, models.PaymentCompleted}).
			Where("status <> ?", models.StatusCancelled).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}

		return tx.Create(b).Error
	})
}

func (s *gormBookingStore) GetByID(id string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.First(&booking, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (s *gormBookingStore) GetBySessionID(sessionID string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.First(&booking, "stripe_session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (s *gormBookingStore) List(filter ListFilter) ([]models.Booking, int64, error) {
	query := s.db.Model(&models.Booking{})
	if filter.Accommodation != "" {
		query = query.Where("accommodation = ?", filter.Accommodation)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var bookings []models.Booking
	err := query.Order("check_in DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&bookings).Error
	return bookings, total, err
}

func (s *gormBookingStore) Save(b *models.Booking) error {
	return s.db.Save(b).Error
}

func (s *gormBookingStore) Delete(id string) error {
	res := s.db.Delete(&models.Booking{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormBookingStore) Upsert(b *models.Booking) (bool, error) {
	// The row may exist under the prefixed id (earlier webhook) or under a
	// direct-booking id that was later pushed to the PMS. Whichever exists
	// keeps its key; all other fields are last-write-wins.
	var existing models.Booking
	err := s.db.Where("id = ?", b.ID).
		Or("pms_booking_id = ? AND pms_booking_id <> ''", b.PMSBookingID).
		First(&existing).Error
	if err == nil {
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
		return false, s.db.Save(b).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	// ON CONFLICT guards the window between the lookup and the insert when
	// the PMS redelivers the same event concurrently.
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(b).Error
	return err == nil, err
}

func (s *gormBookingStore) FindBlocking(accommodation string, checkIn, checkOut time.Time, payment []models.PaymentStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.
		Where("accommodation = ?", accommodation).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn).
		Where("payment_status IN ?", payment).
		Where("status <> ?", models.StatusCancelled).
		Find(&bookings).Error
	return bookings, err
}

func (s *gormBookingStore) InRange(accommodation string, from, to time.Time) ([]models.Booking, error) {
	return s.FindBlocking(accommodation, from, to,
		[]models.PaymentStatus{models.PaymentPending, models.PaymentCompleted})
}

func (s *gormBookingStore) Stats() (*Stats, error) {
	stats := &Stats{ByStatus: map[string]int64{}}

	if err := s.db.Model(&models.Booking{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := s.db.Model(&models.Booking{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
	}

	if err := s.db.Model(&models.Booking{}).
		Where("check_in >= ?", time.Now().Truncate(24*time.Hour)).
		Where("status IN ?", []models.BookingStatus{models.StatusConfirmed, models.StatusPending}).
		Count(&stats.UpcomingCheckIns).Error; err != nil {
		return nil, err
	}

	var revenue *float64
	if err := s.db.Model(&models.Booking{}).
		Select("sum(total_price)").
		Where("payment_status = ?", models.PaymentCompleted).
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	if revenue != nil {
		stats.Revenue = *revenue
	}

	return stats, nil
}
