package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/middleware"
	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/database"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/utils/jwt"
)

func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Plan{},
		&model.Subscription{},
		&model.Trial{},
		&model.PatientKey{},
		&model.BillingEvent{},
	))
	database.SetDB(db)

	app := fiber.New()
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", Register)
	auth.Post("/login", Login)

	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", ListPlans)

	api.Post("/webhook", HandleStripeWebhook)

	subProtected := subscriptions.Use(middleware.AuthMiddleware())
	subProtected.Post("/create-checkout-session", CreateCheckoutSession)
	subProtected.Post("/cancel", CancelSubscription)
	subProtected.Post("/sync", SyncSubscription)
	subProtected.Get("/status", GetSubscriptionStatus)

	keys := api.Group("/patient-keys", middleware.AuthMiddleware())
	keys.Post("/", middleware.RequireRole(model.RoleNutritionist), GeneratePatientKey)
	keys.Get("/", middleware.RequireRole(model.RoleNutritionist), ListPatientKeys)
	keys.Post("/connect", middleware.RequireRole(model.RolePatient), ConnectPatientKey)

	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", GetMe)

	return app, db
}

func createTestUser(t *testing.T, db *gorm.DB, emailAddr, role string) (*model.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{
		Email:    emailAddr,
		Password: string(hashed),
		Name:     "Test " + role,
		Handle:   "test-" + role + "-" + emailAddr,
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	return &user, token
}

func jsonRequest(t *testing.T, method, target, token string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeList(t *testing.T, resp *http.Response) []map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
