package handlers_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/digistore/internal/database"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/routes"
)

// fakeGateway mimics the payment gateway's initialize and verify endpoints.
func fakeGateway(t *testing.T, chargeStatus string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/transaction/initialize":
			fmt.Fprint(w, `{"status":true,"data":{"authorization_url":"https://gateway.example/pay/abc","reference":"ref"}}`)
		case strings.HasPrefix(r.URL.Path, "/transaction/verify/"):
			fmt.Fprintf(w, `{"status":true,"data":{"status":%q}}`, chargeStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"status":false,"message":"not found"}`)
		}
	}))
}

func newCheckoutApp(t *testing.T, gatewayURL string) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := testConfig()
	cfg.PaystackEnabled = true
	cfg.PaystackSecretKey = "sk_test_secret"
	cfg.PaystackBaseURL = gatewayURL

	app := fiber.New(fiber.Config{ErrorHandler: routes.ErrorHandler})
	routes.Register(app, db, cfg)

	return app, db
}

func seedProduct(t *testing.T, db *gorm.DB, name, productType string, price float64, links string) models.Product {
	t.Helper()

	product := models.Product{
		Name:        name,
		Slug:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		ProductType: productType,
		Price:       price,
		Currency:    "NGN",
		IsActive:    true,
	}
	if links != "" {
		product.FileLinks = datatypes.JSON(links)
	}
	require.NoError(t, db.Create(&product).Error)

	return product
}

func TestCheckoutRequiresVerifiedEmail(t *testing.T) {
	gateway := fakeGateway(t, "success")
	defer gateway.Close()
	app, db := newCheckoutApp(t, gateway.URL)

	product := seedProduct(t, db, "Landing Kit", models.ProductTypeTemplate, 5000, "")

	status, body := doJSON(t, app, http.MethodPost, "/api/checkout", map[string]interface{}{
		"email": "stranger@example.com",
		"items": []map[string]interface{}{{"product_id": product.ID.String(), "quantity": 1}},
	}, "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestCheckoutVerifyCreatesDeliveriesAndCommission(t *testing.T) {
	gateway := fakeGateway(t, "success")
	defer gateway.Close()
	app, db := newCheckoutApp(t, gateway.URL)

	seedCustomer(t, db, "buyer@example.com", "")
	template := seedProduct(t, db, "Portfolio Site", models.ProductTypeTemplate, 12000, "")
	tool := seedProduct(t, db, "SEO Toolkit", models.ProductTypeTool, 8000,
		`["https://files.example/seo-toolkit.zip"]`)

	referrer := seedCustomer(t, db, "referrer@example.com", "")
	profile := models.AffiliateProfile{
		CustomerID: referrer.ID, ReferralCode: "FRIEND10", Status: "active",
	}
	require.NoError(t, db.Create(&profile).Error)

	status, body := doJSON(t, app, http.MethodPost, "/api/checkout", map[string]interface{}{
		"email":          "buyer@example.com",
		"affiliate_code": "FRIEND10",
		"items": []map[string]interface{}{
			{"product_id": template.ID.String(), "quantity": 1},
			{"product_id": tool.ID.String(), "quantity": 1},
		},
	}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "https://gateway.example/pay/abc", body["authorization_url"])
	reference, _ := body["payment_reference"].(string)
	require.NotEmpty(t, reference)
	assert.InDelta(t, 20000.0, body["amount"], 0.001)

	status, body = doJSON(t, app, http.MethodGet, "/api/checkout/verify/"+reference, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.OrderStatusPaid, body["status"])

	var order models.PendingOrder
	require.NoError(t, db.Where("payment_reference = ?", reference).First(&order).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	require.NotNil(t, order.PaidAt)

	var deliveries []models.Delivery
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&deliveries).Error)
	require.Len(t, deliveries, 2)

	byType := map[string]models.Delivery{}
	for _, d := range deliveries {
		byType[d.ProductType] = d
	}
	assert.Equal(t, models.DeliveryStatusPending, byType[models.ProductTypeTemplate].DeliveryStatus)
	assert.Equal(t, models.DeliveryStatusReady, byType[models.ProductTypeTool].DeliveryStatus)
	assert.NotEmpty(t, byType[models.ProductTypeTool].DownloadLinks)

	var commission models.ReferralCommission
	require.NoError(t, db.Where("affiliate_id = ?", profile.ID).First(&commission).Error)
	assert.Equal(t, order.ID, commission.OrderID)
	assert.InDelta(t, 2000.0, commission.Amount, 0.001) // 10% of 20000
	assert.Equal(t, models.CommissionStatusPending, commission.Status)

	// Verifying again is a no-op, not a duplicate fulfillment.
	status, _ = doJSON(t, app, http.MethodGet, "/api/checkout/verify/"+reference, nil, "")
	require.Equal(t, http.StatusOK, status)
	var deliveryCount int64
	require.NoError(t, db.Model(&models.Delivery{}).Where("order_id = ?", order.ID).Count(&deliveryCount).Error)
	assert.Equal(t, int64(2), deliveryCount)
}

func TestCheckoutVerifyFailedCharge(t *testing.T) {
	gateway := fakeGateway(t, "failed")
	defer gateway.Close()
	app, db := newCheckoutApp(t, gateway.URL)

	seedCustomer(t, db, "unlucky@example.com", "")
	product := seedProduct(t, db, "CRM Tool", models.ProductTypeTool, 4000, `["https://files.example/crm.zip"]`)

	status, body := doJSON(t, app, http.MethodPost, "/api/checkout", map[string]interface{}{
		"email": "unlucky@example.com",
		"items": []map[string]interface{}{{"product_id": product.ID.String(), "quantity": 1}},
	}, "")
	require.Equal(t, http.StatusCreated, status)
	reference := body["payment_reference"].(string)

	status, _ = doJSON(t, app, http.MethodGet, "/api/checkout/verify/"+reference, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)

	var order models.PendingOrder
	require.NoError(t, db.Where("payment_reference = ?", reference).First(&order).Error)
	assert.Equal(t, models.OrderStatusFailed, order.Status)

	var deliveryCount int64
	require.NoError(t, db.Model(&models.Delivery{}).Where("order_id = ?", order.ID).Count(&deliveryCount).Error)
	assert.Equal(t, int64(0), deliveryCount)
}

// postSignedWebhook delivers a charge.success event with a valid signature.
func postSignedWebhook(t *testing.T, app *fiber.App, reference string) int {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data":  map[string]interface{}{"reference": reference},
	})
	require.NoError(t, err)

	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Paystack-Signature", hex.EncodeToString(mac.Sum(nil)))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()

	return resp.StatusCode
}

func TestVerifyInFlightChargeKeepsOrderOpen(t *testing.T) {
	gateway := fakeGateway(t, "abandoned")
	defer gateway.Close()
	app, db := newCheckoutApp(t, gateway.URL)

	seedCustomer(t, db, "slowpay@example.com", "")
	product := seedProduct(t, db, "Audit Tool", models.ProductTypeTool, 6000, `["https://files.example/audit.zip"]`)

	status, body := doJSON(t, app, http.MethodPost, "/api/checkout", map[string]interface{}{
		"email": "slowpay@example.com",
		"items": []map[string]interface{}{{"product_id": product.ID.String(), "quantity": 1}},
	}, "")
	require.Equal(t, http.StatusCreated, status)
	reference := body["payment_reference"].(string)

	// The gateway still has the charge in flight: no verdict yet, so the
	// order must stay open rather than flip to failed.
	status, _ = doJSON(t, app, http.MethodGet, "/api/checkout/verify/"+reference, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)

	var order models.PendingOrder
	require.NoError(t, db.Where("payment_reference = ?", reference).First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	// The eventual success event completes the order.
	require.Equal(t, http.StatusOK, postSignedWebhook(t, app, reference))

	require.NoError(t, db.Where("payment_reference = ?", reference).First(&order).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	var deliveryCount int64
	require.NoError(t, db.Model(&models.Delivery{}).Where("order_id = ?", order.ID).Count(&deliveryCount).Error)
	assert.Equal(t, int64(1), deliveryCount)
}

func TestWebhookRecoversFailedOrder(t *testing.T) {
	gateway := fakeGateway(t, "failed")
	defer gateway.Close()
	app, db := newCheckoutApp(t, gateway.URL)

	seedCustomer(t, db, "retry@example.com", "")
	product := seedProduct(t, db, "Backup Tool", models.ProductTypeTool, 7000, `["https://files.example/backup.zip"]`)

	status, body := doJSON(t, app, http.MethodPost, "/api/checkout", map[string]interface{}{
		"email": "retry@example.com",
		"items": []map[string]interface{}{{"product_id": product.ID.String(), "quantity": 1}},
	}, "")
	require.Equal(t, http.StatusCreated, status)
	reference := body["payment_reference"].(string)

	status, _ = doJSON(t, app, http.MethodGet, "/api/checkout/verify/"+reference, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)

	var order models.PendingOrder
	require.NoError(t, db.Where("payment_reference = ?", reference).First(&order).Error)
	require.Equal(t, models.OrderStatusFailed, order.Status)

	// A confirmed success outranks the earlier failed verdict.
	require.Equal(t, http.StatusOK, postSignedWebhook(t, app, reference))

	require.NoError(t, db.Where("payment_reference = ?", reference).First(&order).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	require.NotNil(t, order.PaidAt)

	var deliveryCount int64
	require.NoError(t, db.Model(&models.Delivery{}).Where("order_id = ?", order.ID).Count(&deliveryCount).Error)
	assert.Equal(t, int64(1), deliveryCount)
}

func TestWebhookSignature(t *testing.T) {
	gateway := fakeGateway(t, "success")
	defer gateway.Close()
	app, db := newCheckoutApp(t, gateway.URL)

	seedCustomer(t, db, "hook@example.com", "")
	product := seedProduct(t, db, "Invoice Tool", models.ProductTypeTool, 3000, `["https://files.example/invoice.zip"]`)

	status, body := doJSON(t, app, http.MethodPost, "/api/checkout", map[string]interface{}{
		"email": "hook@example.com",
		"items": []map[string]interface{}{{"product_id": product.ID.String(), "quantity": 1}},
	}, "")
	require.Equal(t, http.StatusCreated, status)
	reference := body["payment_reference"].(string)

	payload, err := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data":  map[string]interface{}{"reference": reference},
	})
	require.NoError(t, err)

	// Wrong signature is refused.
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Paystack-Signature", "deadbeef")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct HMAC moves the order.
	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(payload)
	req = httptest.NewRequest(http.MethodPost, "/api/checkout/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Paystack-Signature", hex.EncodeToString(mac.Sum(nil)))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var order models.PendingOrder
	require.NoError(t, db.Where("payment_reference = ?", reference).First(&order).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
}
