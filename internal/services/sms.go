package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// SMSService sends OTP codes over SMS or WhatsApp through the messaging
// gateway. When unconfigured it logs and no-ops so local development works
// without credentials.
type SMSService struct {
	baseURL  string
	apiKey   string
	senderID string
	enabled  bool
	client   *http.Client
}

// NewSMSService creates a new SMSService.
func NewSMSService(baseURL, apiKey, senderID string, enabled bool) *SMSService {
	return &SMSService{
		baseURL:  baseURL,
		apiKey:   apiKey,
		senderID: senderID,
		enabled:  enabled,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type smsMessage struct {
	To      string `json:"to"`
	From    string `json:"from"`
	SMS     string `json:"sms"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	APIKey  string `json:"api_key"`
}

// SendOTP delivers a verification code to the given phone number. Channel is
// "generic" for plain SMS or "whatsapp".
func (s *SMSService) SendOTP(phone, code, channel string) error {
	if !s.enabled || s.apiKey == "" {
		log.Printf("[SMS] gateway not configured, code for %s not sent", phone)
		return nil
	}

	msg := smsMessage{
		To:      phone,
		From:    s.senderID,
		SMS:     fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code),
		Type:    "plain",
		Channel: channel,
		APIKey:  s.apiKey,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.baseURL+"/api/sms/send", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[SMS] failed to send: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SMS] unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("sms gateway status %d", resp.StatusCode)
	}

	return nil
}
