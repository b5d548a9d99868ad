package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/digistore/internal/config"
	"github.com/example/digistore/internal/database"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/routes"
	"github.com/example/digistore/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionExpires:    24 * time.Hour,
		ResetTokenSecret:  "test-secret",
		ResetTokenExpires: 30 * time.Minute,
		CommissionPercent: 10,
	}
}

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := testConfig()

	app := fiber.New(fiber.Config{ErrorHandler: routes.ErrorHandler})
	routes.Register(app, db, cfg)

	return app, db, cfg
}

// doJSON performs a request against the app and decodes the JSON body.
func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}, sessionToken string) (int, map[string]interface{}) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))

	return resp.StatusCode, parsed
}

func seedCustomer(t *testing.T, db *gorm.DB, email, password string) models.Customer {
	t.Helper()

	customer := models.Customer{
		Email:         email,
		EmailVerified: true,
		Status:        models.CustomerStatusActive,
	}
	if password != "" {
		hash, err := utils.HashPassword(password)
		require.NoError(t, err)
		customer.PasswordHash = &hash
	}
	require.NoError(t, db.Create(&customer).Error)

	return customer
}

func seedSession(t *testing.T, db *gorm.DB, customer models.Customer) models.CustomerSession {
	t.Helper()

	token, err := utils.GenerateSessionToken()
	require.NoError(t, err)

	session := models.CustomerSession{
		CustomerID:     customer.ID,
		Token:          token,
		IsActive:       true,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
		LastActivityAt: time.Now(),
	}
	require.NoError(t, db.Create(&session).Error)

	return session
}
