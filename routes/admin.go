package routes

import (
	"errors"
	"log"
	"os"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/services"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler is the token-gated operations surface: booking CRUD, stats,
// PMS sync and refunds.
type AdminHandler struct {
	Store   storage.BookingStore
	Sync    *services.SyncService
	Refunds *services.RefundService
	PMS     services.PMSClient
}

type AdminLoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks the single env-configured admin credential
// (ADMIN_USERNAME + bcrypt ADMIN_PASSWORD_HASH) and issues a token pair.
func (h *AdminHandler) Login(ctx iris.Context) {
	var input AdminLoginInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	username := os.Getenv("ADMIN_USERNAME")
	passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if username == "" || passwordHash == "" {
		log.Println("admin login attempted but ADMIN_USERNAME/ADMIN_PASSWORD_HASH not configured")
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid credentials", ctx)
		return
	}

	if input.Username != username ||
		bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(input.Password)) != nil {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid credentials", ctx)
		return
	}

	tokenPair, err := utils.CreateTokenPair(username)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(tokenPair)
}

func (h *AdminHandler) Verify(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	ctx.JSON(iris.Map{"valid": true, "subject": claims.Subject, "role": claims.Role})
}

func (h *AdminHandler) ListBookings(ctx iris.Context) {
	filter := storage.ListFilter{
		Accommodation: ctx.URLParam("accommodation"),
		Status:        ctx.URLParam("status"),
		Page:          ctx.URLParamIntDefault("page", 1),
		PerPage:       ctx.URLParamIntDefault("per_page", 20),
	}

	bookings, total, err := h.Store.List(filter)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, bookings, filter.Page, filter.PerPage, total)
}

func (h *AdminHandler) GetBooking(ctx iris.Context) {
	booking, err := h.Store.GetByID(ctx.Params().Get("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.CreateNotFound(ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(booking)
}

type UpdateBookingStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled partially_refunded"`
}

func (h *AdminHandler) UpdateBookingStatus(ctx iris.Context) {
	var input UpdateBookingStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	booking, err := h.Store.GetByID(ctx.Params().Get("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.CreateNotFound(ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	next := models.BookingStatus(input.Status)
	if !booking.Status.CanTransitionTo(next) {
		utils.CreateError(iris.StatusConflict, "Invalid Transition",
			"Cannot change status from "+string(booking.Status)+" to "+input.Status, ctx)
		return
	}

	booking.Status = next
	if err := h.Store.Save(booking); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(booking)
}

func (h *AdminHandler) DeleteBooking(ctx iris.Context) {
	if err := h.Store.Delete(ctx.Params().Get("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.CreateNotFound(ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"deleted": true})
}

// gstFraction extracts the GST component from a tax-inclusive NZD amount
// (15% GST: component = total * 3/23).
const gstFraction = 3.0 / 23.0

func (h *AdminHandler) Stats(ctx iris.Context) {
	stats, err := h.Store.Stats()
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"total":            stats.Total,
		"byStatus":         stats.ByStatus,
		"upcomingCheckIns": stats.UpcomingCheckIns,
		"revenue":          stats.Revenue,
		"gstComponent":     stats.Revenue * gstFraction,
	})
}

func (h *AdminHandler) SyncPMS(ctx iris.Context) {
	report, err := h.Sync.BulkSync()
	if err != nil {
		if errors.Is(err, services.ErrPMSNotConfigured) {
			utils.CreateError(iris.StatusServiceUnavailable, "PMS Unavailable",
				"PMS integration is not configured", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(report)
}

type RefundInput struct {
	Amount float64 `json:"amount" validate:"omitempty,gte=0"`
}

func (h *AdminHandler) RefundBooking(ctx iris.Context) {
	// An empty body means a full refund.
	var input RefundInput
	if ctx.GetContentLength() > 0 {
		if err := ctx.ReadJSON(&input); err != nil {
			utils.HandleValidationErrors(err, ctx)
			return
		}
	}

	booking, err := h.Refunds.Refund(ctx.Params().Get("id"), input.Amount)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			utils.CreateNotFound(ctx)
		case errors.Is(err, services.ErrNothingToRefund):
			utils.CreateError(iris.StatusBadRequest, "Refund Error", err.Error(), ctx)
		default:
			log.Printf("refund failed for booking %s: %v", ctx.Params().Get("id"), err)
			utils.CreateError(iris.StatusBadGateway, "Refund Error",
				"Refund could not be processed", ctx)
		}
		return
	}

	ctx.JSON(booking)
}

func (h *AdminHandler) RetrySync(ctx iris.Context) {
	result, err := h.Sync.RetrySync(ctx.Params().Get("id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			utils.CreateNotFound(ctx)
		case errors.Is(err, services.ErrPMSNotConfigured):
			utils.CreateError(iris.StatusServiceUnavailable, "PMS Unavailable",
				"PMS integration is not configured", ctx)
		default:
			log.Printf("retry-sync failed for booking %s: %v", ctx.Params().Get("id"), err)
			utils.CreateError(iris.StatusBadGateway, "Sync Error", "PMS push failed", ctx)
		}
		return
	}
	ctx.JSON(result)
}

func (h *AdminHandler) VerifyPMS(ctx iris.Context) {
	if err := h.PMS.VerifyCredentials(); err != nil {
		if errors.Is(err, services.ErrPMSNotConfigured) {
			utils.CreateError(iris.StatusServiceUnavailable, "PMS Unavailable",
				"PMS integration is not configured", ctx)
			return
		}
		log.Printf("PMS credential check failed: %v", err)
		utils.CreateError(iris.StatusBadGateway, "PMS Error", "PMS credentials rejected", ctx)
		return
	}
	ctx.JSON(iris.Map{"ok": true})
}
