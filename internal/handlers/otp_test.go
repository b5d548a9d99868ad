package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/digistore/internal/models"
)

func TestRequestOTPUnregisteredEmailLoginContext(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/customer/request-otp", map[string]interface{}{
		"email":   "nobody@example.com",
		"context": "login",
	}, "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestRequestOTPInvalidatesPreviousCodes(t *testing.T) {
	app, db, _ := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/customer/request-otp", map[string]interface{}{
		"email": "shopper@example.com",
	}, "")
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/customer/request-otp", map[string]interface{}{
		"email": "shopper@example.com",
	}, "")
	require.Equal(t, http.StatusOK, status)

	var codes []models.OTPCode
	require.NoError(t, db.Where("email = ?", "shopper@example.com").
		Order("created_at asc").Find(&codes).Error)
	require.Len(t, codes, 2)

	assert.False(t, codes[0].Verifiable(time.Now()), "older code should be invalidated")
	assert.True(t, codes[1].Verifiable(time.Now()))
}

func TestVerifyOTPHappyPathAndSingleUse(t *testing.T) {
	app, db, _ := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/customer/request-otp", map[string]interface{}{
		"email": "buyer@example.com",
	}, "")
	require.Equal(t, http.StatusOK, status)

	var otp models.OTPCode
	require.NoError(t, db.Where("email = ?", "buyer@example.com").
		Order("created_at desc").First(&otp).Error)

	status, body := doJSON(t, app, http.MethodPost, "/api/customer/verify-otp", map[string]interface{}{
		"email": "buyer@example.com",
		"code":  otp.Code,
	}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["verified"])

	require.NoError(t, db.First(&otp, "id = ?", otp.ID).Error)
	assert.True(t, otp.IsUsed)
	require.NotNil(t, otp.UsedAt)

	// Checkout creates the account on first email verification.
	var customer models.Customer
	require.NoError(t, db.Where("email = ?", "buyer@example.com").First(&customer).Error)
	assert.True(t, customer.EmailVerified)
	assert.Equal(t, models.CustomerStatusPendingSetup, customer.Status)

	// A used code never verifies again.
	status, body = doJSON(t, app, http.MethodPost, "/api/customer/verify-otp", map[string]interface{}{
		"email": "buyer@example.com",
		"code":  otp.Code,
	}, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}

func TestVerifyPhoneOTP(t *testing.T) {
	app, db, _ := newTestApp(t)

	owner := seedCustomer(t, db, "phoned@example.com", "secret-pa55")
	require.NoError(t, db.Model(&owner).Update("phone", "+2348012345678").Error)
	bystander := seedCustomer(t, db, "bystander@example.com", "secret-pa55")

	otp := models.OTPCode{
		Phone:       "+2348012345678",
		OTPType:     models.OTPTypePhoneVerify,
		Code:        "246810",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
		MaxAttempts: models.OTPMaxAttempts,
	}
	require.NoError(t, db.Create(&otp).Error)

	status, body := doJSON(t, app, http.MethodPost, "/api/customer/verify-otp", map[string]interface{}{
		"phone":    "+2348012345678",
		"otp_type": models.OTPTypePhoneVerify,
		"code":     "246810",
	}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["verified"])

	var updated models.Customer
	require.NoError(t, db.First(&updated, "id = ?", owner.ID).Error)
	assert.True(t, updated.PhoneVerified)

	// Only the account holding the phone is touched.
	updated = models.Customer{}
	require.NoError(t, db.First(&updated, "id = ?", bystander.ID).Error)
	assert.False(t, updated.PhoneVerified)
}

func TestVerifyPhoneOTPUnknownPhone(t *testing.T) {
	app, db, _ := newTestApp(t)

	otp := models.OTPCode{
		Phone:       "+2348099999999",
		OTPType:     models.OTPTypePhoneVerify,
		Code:        "135791",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
		MaxAttempts: models.OTPMaxAttempts,
	}
	require.NoError(t, db.Create(&otp).Error)

	status, body := doJSON(t, app, http.MethodPost, "/api/customer/verify-otp", map[string]interface{}{
		"phone":    "+2348099999999",
		"otp_type": models.OTPTypePhoneVerify,
		"code":     "135791",
	}, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])

	// The code survives for a retry once an account exists.
	require.NoError(t, db.First(&otp, "id = ?", otp.ID).Error)
	assert.False(t, otp.IsUsed)
}

func TestVerifyOTPExpired(t *testing.T) {
	app, db, _ := newTestApp(t)

	otp := models.OTPCode{
		Email:       "late@example.com",
		OTPType:     models.OTPTypeEmailVerify,
		Code:        "123456",
		ExpiresAt:   time.Now().Add(-time.Minute),
		MaxAttempts: models.OTPMaxAttempts,
	}
	require.NoError(t, db.Create(&otp).Error)

	status, body := doJSON(t, app, http.MethodPost, "/api/customer/verify-otp", map[string]interface{}{
		"email": "late@example.com",
		"code":  "123456",
	}, "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestVerifyOTPAttemptLockout(t *testing.T) {
	app, db, _ := newTestApp(t)

	otp := models.OTPCode{
		Email:       "locked@example.com",
		OTPType:     models.OTPTypeEmailVerify,
		Code:        "654321",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
		MaxAttempts: models.OTPMaxAttempts,
	}
	require.NoError(t, db.Create(&otp).Error)

	for i := 0; i < models.OTPMaxAttempts; i++ {
		status, _ := doJSON(t, app, http.MethodPost, "/api/customer/verify-otp", map[string]interface{}{
			"email": "locked@example.com",
			"code":  "000000",
		}, "")
		assert.Equal(t, http.StatusBadRequest, status)
	}

	require.NoError(t, db.First(&otp, "id = ?", otp.ID).Error)
	assert.Equal(t, models.OTPMaxAttempts, otp.Attempts)

	// Even the right code is refused once the attempts are spent.
	status, _ := doJSON(t, app, http.MethodPost, "/api/customer/verify-otp", map[string]interface{}{
		"email": "locked@example.com",
		"code":  "654321",
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, status)
}
