package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	portalsession "github.com/stripe/stripe-go/v74/billingportal/session"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/customer"
	"github.com/stripe/stripe-go/v74/subscription"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/billing"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/database"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/email"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/utils/jwt"
)

type CheckoutInput struct {
	PlanID     string `json:"plan_id" validate:"required"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func ListPlans(c *fiber.Ctx) error {
	query := database.GetDB().Where("active = ?", true)
	if userType := c.Query("user_type"); userType != "" {
		query = query.Where("user_type = ?", userType)
	}

	var plans []model.Plan
	if err := query.Find(&plans).Error; err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not fetch subscription plans")
	}

	return c.JSON(plans)
}

// CreateCheckoutSession opens a Stripe Checkout transaction for the
// selected plan. Users holding an access-granting subscription are turned
// away before any Stripe call: same plan means they are already
// subscribed, a different plan means the change must go through the
// billing portal.
func CreateCheckoutSession(c *fiber.Ctx) error {
	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil || input.PlanID == "" {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "plan_id is required")
	}

	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	var plan model.Plan
	if err := db.First(&plan, "stripe_price_id = ? AND active = ?", input.PlanID, true).Error; err != nil {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidPlan, "Unknown or inactive plan")
	}

	var existing model.Subscription
	err := db.Where("user_id = ? AND status IN ?", claims.UserID, billing.ActiveLikeStatuses).
		Order("updated_at DESC").
		First(&existing).Error
	if err == nil {
		if existing.StripePriceID == plan.StripePriceID {
			return errJSON(c, fiber.StatusBadRequest, CodeAlreadySubscribed, "You already have an active subscription to this plan")
		}
		return errJSON(c, fiber.StatusBadRequest, CodeMustUsePortal, "Plan changes must go through the billing portal")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not check existing subscriptions")
	}

	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return errJSON(c, fiber.StatusNotFound, CodeNotFound, "User not found")
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	customerID, err := resolveStripeCustomer(db, &user, plan.UserType)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, CodeUpstreamFailure, "Could not create Stripe customer")
	}

	appURL := strings.TrimRight(os.Getenv("APP_URL"), "/")
	successURL := input.SuccessURL
	if successURL == "" {
		successURL = appURL + "/subscriptions/payment-success"
	}
	cancelURL := input.CancelURL
	if cancelURL == "" {
		cancelURL = appURL + "/subscriptions/payment-cancelled"
	}

	meta := map[string]string{
		"user_id":   fmt.Sprintf("%d", user.ID),
		"user_type": plan.UserType,
		"price_id":  plan.StripePriceID,
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:               stripe.String(successURL),
		CancelURL:                stripe.String(cancelURL),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		AllowPromotionCodes:      stripe.Bool(true),
		// Metadata on SubscriptionData survives into the subscription
		// object the webhook later reports.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	if plan.UserType == model.RolePatient && plan.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(plan.TrialDays))
	}

	sess, err := session.New(params)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, CodeUpstreamFailure, "Could not create checkout session")
	}

	return c.JSON(fiber.Map{
		"transaction_id": sess.ID,
		"redirect_url":   sess.URL,
	})
}

// resolveStripeCustomer reuses the most recent customer id from any prior
// subscription row, creating a new Stripe customer only for first-time
// buyers.
func resolveStripeCustomer(db *gorm.DB, user *model.User, userType string) (string, error) {
	var prior model.Subscription
	err := db.Where("user_id = ? AND stripe_customer_id <> ''", user.ID).
		Order("updated_at DESC").
		First(&prior).Error
	if err == nil {
		return prior.StripeCustomerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	customerParams := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
	}
	customerParams.AddMetadata("user_id", fmt.Sprintf("%d", user.ID))
	customerParams.AddMetadata("user_type", userType)

	stripeCustomer, err := customer.New(customerParams)
	if err != nil {
		return "", err
	}
	return stripeCustomer.ID, nil
}

// CancelSubscription asks Stripe to stop the subscription at period end
// and mirrors whatever Stripe echoes back. The subscription has not ended
// yet, so canceled_at stays untouched until a later webhook reports the
// final state.
func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	userSub, err := latestStripeSubscription(db, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errJSON(c, fiber.StatusNotFound, CodeNotFound, "No subscription found")
		}
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not fetch subscription")
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	updated, err := subscription.Update(userSub.StripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, CodeUpstreamFailure, "Could not cancel Stripe subscription")
	}

	row, err := billing.SyncStripeSubscription(db, updated, time.Now())
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not update subscription status")
	}

	if email.GlobalEmailService != nil {
		var user model.User
		if err := db.First(&user, claims.UserID).Error; err == nil {
			periodEnd := time.Now()
			if row.CurrentPeriodEnd != nil {
				periodEnd = *row.CurrentPeriodEnd
			}
			if err := email.GlobalEmailService.SendSubscriptionCancelledEmail(user.Email, user.Name, periodEnd); err != nil {
				log.Printf("Could not send cancellation email: %v", err)
			}
		}
	}

	return c.JSON(fiber.Map{
		"message":              "Subscription will be cancelled at period end",
		"status":               row.Status,
		"cancel_at_period_end": row.CancelAtPeriodEnd,
	})
}

// SyncSubscription pulls the caller's subscription from Stripe and runs it
// through the same reconciliation path as a webhook push.
func SyncSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	userSub, err := latestStripeSubscription(db, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errJSON(c, fiber.StatusNotFound, CodeNotFound, "No subscription found")
		}
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not fetch subscription")
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	remote, err := subscription.Get(userSub.StripeSubscriptionID, nil)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, CodeUpstreamFailure, "Could not fetch subscription from Stripe")
	}

	row, err := billing.SyncStripeSubscription(db, remote, time.Now())
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not reconcile subscription")
	}

	return c.JSON(fiber.Map{
		"status":               row.Status,
		"cancel_at_period_end": row.CancelAtPeriodEnd,
	})
}

// GetSubscriptionStatus answers the access questions UI banners and gates
// ask. No caching: every call re-queries.
func GetSubscriptionStatus(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()
	now := time.Now()

	hasSub, err := billing.HasActiveSubscription(db, claims.UserID, now)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not check subscription status")
	}
	hasTrial, err := billing.HasActiveTrial(db, claims.UserID, now)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not check trial status")
	}
	daysLeft, err := billing.TrialDaysRemaining(db, claims.UserID, now)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not check trial status")
	}

	resp := fiber.Map{
		"has_active_subscription": hasSub,
		"has_active_trial":        hasTrial,
		"trial_days_remaining":    daysLeft,
	}

	var latest model.Subscription
	if err := db.Where("user_id = ?", claims.UserID).
		Order("updated_at DESC").
		First(&latest).Error; err == nil {
		resp["status"] = latest.Status
		resp["cancel_at_period_end"] = latest.CancelAtPeriodEnd
		resp["current_period_end"] = latest.CurrentPeriodEnd
	}

	return c.JSON(resp)
}

// CreatePortalSession opens the Stripe self-service portal, the required
// path for plan changes.
func CreatePortalSession(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	var prior model.Subscription
	err := db.Where("user_id = ? AND stripe_customer_id <> ''", claims.UserID).
		Order("updated_at DESC").
		First(&prior).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errJSON(c, fiber.StatusNotFound, CodeNotFound, "No billing customer found")
		}
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not fetch subscription")
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(prior.StripeCustomerID),
		ReturnURL: stripe.String(strings.TrimRight(os.Getenv("APP_URL"), "/") + "/settings/billing"),
	})
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, CodeUpstreamFailure, "Could not create portal session")
	}

	return c.JSON(fiber.Map{"redirect_url": sess.URL})
}

func latestStripeSubscription(db *gorm.DB, userID uint) (*model.Subscription, error) {
	var userSub model.Subscription
	err := db.Where("user_id = ? AND stripe_subscription_id <> ''", userID).
		Order("updated_at DESC").
		First(&userSub).Error
	if err != nil {
		return nil, err
	}
	return &userSub, nil
}

// HandleStripeWebhook verifies and applies billing events pushed by
// Stripe. Every verified delivery is recorded in billing_events before
// being applied; duplicate deliveries insert nothing and reconcile to the
// same row state.
func HandleStripeWebhook(c *fiber.Ctx) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	payload := c.Body()
	signatureHeader := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEvent(payload, signatureHeader, webhookSecret)
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid webhook signature")
	}

	log.Printf("Processing Stripe webhook event: %s (%s)", event.Type, event.ID)

	db := database.GetDB()

	audit := model.BillingEvent{
		StripeEventID: event.ID,
		Type:          string(event.Type),
		Payload:       datatypes.JSON(payload),
	}
	if err := db.Create(&audit).Error; err != nil {
		log.Printf("Could not record billing event %s (possibly redelivered): %v", event.ID, err)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Malformed subscription payload")
		}

		row, err := billing.SyncStripeSubscription(db, &stripeSub, time.Unix(event.Created, 0))
		if err != nil {
			if errors.Is(err, billing.ErrMalformed) {
				return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Malformed subscription payload")
			}
			return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not reconcile subscription")
		}

		log.Printf("Subscription %s reconciled to status %s", row.StripeSubscriptionID, row.Status)

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Malformed checkout payload")
		}
		if sess.Subscription == nil || sess.Subscription.ID == "" {
			log.Printf("Checkout session %s completed without a subscription, skipping", sess.ID)
			break
		}

		stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
		remote, err := subscription.Get(sess.Subscription.ID, nil)
		if err != nil {
			return errJSON(c, fiber.StatusBadGateway, CodeUpstreamFailure, "Could not fetch subscription from Stripe")
		}

		row, err := billing.SyncStripeSubscription(db, remote, time.Now())
		if err != nil {
			if errors.Is(err, billing.ErrMalformed) {
				return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Malformed subscription payload")
			}
			return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not reconcile subscription")
		}

		if email.GlobalEmailService != nil {
			var user model.User
			if err := db.First(&user, row.UserID).Error; err == nil {
				if err := email.GlobalEmailService.SendSubscriptionStartedEmail(user.Email, user.Name, row.Status, row.TrialEnd); err != nil {
					log.Printf("Could not send subscription email: %v", err)
				}
			}
		}

		log.Printf("Checkout %s reconciled subscription %s to status %s", sess.ID, row.StripeSubscriptionID, row.Status)

	default:
		log.Printf("Unhandled webhook event type: %s", event.Type)
	}

	return c.SendStatus(fiber.StatusOK)
}
