package routes

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/services"
	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/utils"

	"github.com/kataras/iris/v12"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// WebhookHandler receives the two asynchronous channels: Stripe payment
// events and PMS booking events. Apart from signature mismatches every
// request is acknowledged with 200, even when persistence fails, so the
// remote systems do not redeliver in a storm.
type WebhookHandler struct {
	Reconciler *services.ReconcileService
	PMS        services.PMSClient
}

func (h *WebhookHandler) StripeWebhook(ctx iris.Context) {
	body, err := ctx.GetBody()
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Unreadable body", ctx)
		return
	}

	event, err := webhook.ConstructEvent(body, ctx.GetHeader("Stripe-Signature"), os.Getenv("STRIPE_WEBHOOK_SECRET"))
	if err != nil {
		log.Printf("stripe webhook: signature verification failed: %v", err)
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid signature", ctx)
		return
	}

	if event.Type == "checkout.session.completed" {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Printf("stripe webhook: cannot parse session from event %s: %v", event.ID, err)
		} else {
			paymentID := ""
			if session.PaymentIntent != nil {
				paymentID = session.PaymentIntent.ID
			}
			h.Reconciler.PaymentCompleted(session.ID, paymentID)
		}
	}

	ctx.JSON(iris.Map{"received": true})
}

type pmsWebhookEnvelope struct {
	Event string                  `json:"event"`
	Data  services.PMSWebhookData `json:"data"`
}

func (h *WebhookHandler) PMSWebhook(ctx iris.Context) {
	body, err := ctx.GetBody()
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Unreadable body", ctx)
		return
	}

	secret := os.Getenv("PMS_WEBHOOK_SECRET")
	if secret != "" {
		if !verifyPMSSignature(body, ctx.GetHeader("X-PMS-Signature"), secret) {
			log.Printf("pms webhook: signature verification failed")
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid signature", ctx)
			return
		}
	} else {
		log.Printf("WARNING: PMS_WEBHOOK_SECRET not set, accepting unsigned PMS webhook")
	}

	var envelope pmsWebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("pms webhook: unreadable payload: %v", err)
		ctx.JSON(iris.Map{"received": true})
		return
	}

	if envelope.Event != "booking.created" && envelope.Event != "booking.updated" {
		ctx.JSON(iris.Map{"received": true, "ignored": true})
		return
	}

	accommodation, ok := h.PMS.AccommodationForProperty(envelope.Data.PropertyID)
	if !ok {
		log.Printf("pms webhook: no accommodation mapped for property %q, acknowledging", envelope.Data.PropertyID)
		ctx.JSON(iris.Map{"received": true})
		return
	}

	if err := h.Reconciler.UpsertFromPMSEvent(envelope.Data, accommodation, body); err != nil {
		// Acknowledged anyway; a bulk sync will pick the booking up.
		log.Printf("pms webhook: upsert failed for event %s booking %s: %v",
			envelope.Event, envelope.Data.BookingID, err)
	}

	ctx.JSON(iris.Map{"received": true})
}

func verifyPMSSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
