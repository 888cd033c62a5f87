package routes

import (
	"errors"
	"log"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/cache"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/services"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
)

const dateLayout = "2006-01-02"

// BookingHandler serves the public booking flow: availability checks,
// checkout-session creation and the blocked-dates calendar feed.
type BookingHandler struct {
	Store        storage.BookingStore
	Availability *services.AvailabilityService
	Payments     services.PaymentProvider
	Cache        cache.BlockedDatesCache
	Notifier     services.Notifier
}

type CheckAvailabilityInput struct {
	Accommodation string `json:"accommodation" validate:"required"`
	CheckIn       string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut      string `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guests        int    `json:"guests" validate:"omitempty,gte=1,lte=8"`
}

func (h *BookingHandler) CheckAvailability(ctx iris.Context) {
	var input CheckAvailabilityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	checkIn, _ := time.Parse(dateLayout, input.CheckIn)
	checkOut, _ := time.Parse(dateLayout, input.CheckOut)

	result, err := h.Availability.Check(input.Accommodation, checkIn, checkOut, input.Guests)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !result.Available {
		ctx.StatusCode(iris.StatusConflict)
		ctx.JSON(iris.Map{"available": false, "error": result.Reason})
		return
	}

	ctx.JSON(iris.Map{
		"available":     true,
		"accommodation": input.Accommodation,
		"checkIn":       input.CheckIn,
		"checkOut":      input.CheckOut,
	})
}

type CreateBookingInput struct {
	GuestName     string  `json:"guestName" validate:"required,min=2,max=100"`
	GuestEmail    string  `json:"guestEmail" validate:"required,email"`
	GuestPhone    string  `json:"guestPhone" validate:"omitempty,max=32"`
	Accommodation string  `json:"accommodation" validate:"required"`
	CheckIn       string  `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut      string  `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guests        int     `json:"guests" validate:"required,gte=1,lte=8"`
	Children      int     `json:"children" validate:"omitempty,gte=0"`
	Pets          int     `json:"pets" validate:"omitempty,gte=0"`
	TotalPrice    float64 `json:"totalPrice" validate:"gte=0"`
	Notes         string  `json:"notes" validate:"omitempty,max=1000"`
}

// CreateBooking re-checks availability, opens a Stripe Checkout session and
// persists the pending booking under the per-accommodation lock. The session
// is created first: an orphaned session just expires, while a booking row
// without a session could never be paid for.
func (h *BookingHandler) CreateBooking(ctx iris.Context) {
	var input CreateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	checkIn, _ := time.Parse(dateLayout, input.CheckIn)
	checkOut, _ := time.Parse(dateLayout, input.CheckOut)

	result, err := h.Availability.Check(input.Accommodation, checkIn, checkOut, input.Guests)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if !result.Available {
		ctx.StatusCode(iris.StatusConflict)
		ctx.JSON(iris.Map{"available": false, "error": result.Reason})
		return
	}

	booking := models.Booking{
		ID:            uuid.NewString(),
		Accommodation: input.Accommodation,
		GuestName:     input.GuestName,
		GuestEmail:    input.GuestEmail,
		GuestPhone:    input.GuestPhone,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        input.Guests,
		Children:      input.Children,
		Pets:          input.Pets,
		TotalPrice:    input.TotalPrice,
		Notes:         input.Notes,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		Source:        models.SourceDirect,
	}

	session, err := h.Payments.CreateCheckoutSession(&booking)
	if err != nil {
		log.Printf("checkout session creation failed: %v", err)
		utils.CreateError(iris.StatusBadGateway, "Payment Error",
			"Payment processing failed, please try again later", ctx)
		return
	}
	booking.StripeSessionID = session.ID

	if err := h.Store.CreateLocked(&booking); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Someone took the nights between the check and the insert. The
			// session is orphaned and will expire unused.
			ctx.StatusCode(iris.StatusConflict)
			ctx.JSON(iris.Map{"available": false, "error": "Dates were just booked by someone else"})
			return
		}
		log.Printf("failed to persist booking for session %s: %v", session.ID, err)
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"bookingID":   booking.ID,
		"checkoutURL": session.URL,
	})
}

// BlockedDates feeds the calendar widget. Results are cached for a few
// minutes per (accommodation, window); a bulk PMS sync clears the cache.
func (h *BookingHandler) BlockedDates(ctx iris.Context) {
	accommodation := ctx.URLParam("accommodation")
	if !models.KnownAccommodation(accommodation) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Unknown accommodation", ctx)
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	if s := ctx.URLParam("start"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid start date", ctx)
			return
		}
		from = parsed
	}
	if s := ctx.URLParam("end"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid end date", ctx)
			return
		}
		to = parsed
	}

	if dates, ok := h.Cache.Get(accommodation, from, to); ok {
		ctx.JSON(iris.Map{"blockedDates": dates, "cached": true})
		return
	}

	dates, err := h.Availability.BlockedDates(accommodation, from, to)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	h.Cache.Set(accommodation, from, to, dates)

	ctx.JSON(iris.Map{"blockedDates": dates, "cached": false})
}

type ContactInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=5,max=2000"`
}

func (h *BookingHandler) Contact(ctx iris.Context) {
	var input ContactInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := h.Notifier.RelayContactMessage(input.Name, input.Email, input.Message); err != nil {
		log.Printf("contact relay failed from %s: %v", input.Email, err)
	}

	ctx.JSON(iris.Map{"sent": true})
}
