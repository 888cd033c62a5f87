package main

import (
	"log"
	"os"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/cache"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/ratelim"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/routes"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/services"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

const blockedDatesTTL = 5 * time.Minute

func main() {
	godotenv.Load()
	db := storage.InitializeDB()
	storage.InitializeRedis()

	store := storage.NewBookingStore(db)
	blockedDates := cache.New(blockedDatesTTL, nil)
	pms := services.NewPMSClientFromEnv()
	payments := services.NewStripeProviderFromEnv()
	notifier := services.NewNotifierFromEnv()

	availability := services.NewAvailabilityService(store, pms)
	sync := services.NewSyncService(store, pms, blockedDates)
	reconciler := &services.ReconcileService{Store: store, PMS: pms, Notifier: notifier}
	refunds := &services.RefundService{Store: store, Provider: payments, PMS: pms}

	bookingHandler := &routes.BookingHandler{
		Store:        store,
		Availability: availability,
		Payments:     payments,
		Cache:        blockedDates,
		Notifier:     notifier,
	}
	webhookHandler := &routes.WebhookHandler{Reconciler: reconciler, PMS: pms}
	adminHandler := &routes.AdminHandler{Store: store, Sync: sync, Refunds: refunds, PMS: pms}

	app := iris.New()
	app.Validator = validator.New()

	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		if err := ctx.ReadJSON(&tokenInput); err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	publicLimiter := ratelim.NewRateLimiter(1, 5)

	booking := app.Party("/api")
	{
		booking.Post("/availability", publicLimiter.Limit, bookingHandler.CheckAvailability)
		booking.Post("/bookings", publicLimiter.Limit, bookingHandler.CreateBooking)
		booking.Get("/bookings/blocked-dates", bookingHandler.BlockedDates)
		booking.Post("/contact", publicLimiter.Limit, bookingHandler.Contact)
	}

	webhooks := app.Party("/api/webhooks")
	{
		webhooks.Post("/stripe", webhookHandler.StripeWebhook)
		webhooks.Post("/pms", webhookHandler.PMSWebhook)
	}

	admin := app.Party("/api/admin")
	{
		admin.Post("/login", publicLimiter.Limit, adminHandler.Login)
		admin.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

		gated := admin.Party("/", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
		gated.Get("/verify", adminHandler.Verify)
		gated.Get("/bookings", adminHandler.ListBookings)
		gated.Get("/bookings/{id}", adminHandler.GetBooking)
		gated.Patch("/bookings/{id}/status", adminHandler.UpdateBookingStatus)
		gated.Delete("/bookings/{id}", adminHandler.DeleteBooking)
		gated.Post("/bookings/{id}/refund", adminHandler.RefundBooking)
		gated.Post("/bookings/{id}/retry-sync", adminHandler.RetrySync)
		gated.Get("/stats", adminHandler.Stats)
		gated.Post("/sync", adminHandler.SyncPMS)
		gated.Get("/pms/verify", adminHandler.VerifyPMS)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("Lakeside Retreat booking server listening on :" + port)
	app.Listen(":" + port)
}
