package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// PaystackService wraps the card payment gateway. The storefront only ever
// initializes a transaction and verifies it by reference; everything else is
// the gateway's business.
type PaystackService struct {
	baseURL   string
	secretKey string
	enabled   bool
	client    *http.Client
}

// NewPaystackService creates a new PaystackService.
func NewPaystackService(baseURL, secretKey string, enabled bool) *PaystackService {
	return &PaystackService{
		baseURL:   baseURL,
		secretKey: secretKey,
		enabled:   enabled,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SecretKey exposes the configured key for webhook signature checks.
func (s *PaystackService) SecretKey() string {
	return s.secretKey
}

// Enabled reports whether gateway calls are configured.
func (s *PaystackService) Enabled() bool {
	return s.enabled && s.secretKey != ""
}

type initializeRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Currency  string `json:"currency"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction registers a pending charge with the gateway and
// returns the hosted checkout URL. Amount is in naira; the gateway wants kobo.
func (s *PaystackService) InitializeTransaction(email string, amount float64, reference, currency string) (string, error) {
	if !s.Enabled() {
		log.Println("[Paystack] gateway not configured, skipping initialize")
		return "", nil
	}

	payload := initializeRequest{
		Email:     email,
		Amount:    int64(amount * 100),
		Reference: reference,
		Currency:  currency,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Paystack] initialize failed: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	var parsed initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK || !parsed.Status {
		return "", fmt.Errorf("paystack initialize: %s", parsed.Message)
	}

	return parsed.Data.AuthorizationURL, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// VerifyTransaction looks up a charge by reference and returns the gateway's
// status for it: "success", a terminal failure, or an in-flight state such as
// "pending" or "abandoned".
func (s *PaystackService) VerifyTransaction(reference string) (string, error) {
	if !s.Enabled() {
		log.Println("[Paystack] gateway not configured, skipping verify")
		return "", nil
	}

	req, err := http.NewRequest(http.MethodGet, s.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Paystack] verify failed: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK || !parsed.Status {
		return "", fmt.Errorf("paystack verify: %s", parsed.Message)
	}

	return parsed.Data.Status, nil
}
