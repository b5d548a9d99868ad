package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// MailService sends transactional email through the mail provider's HTTP API.
type MailService struct {
	baseURL string
	apiKey  string
	from    string
	enabled bool
	client  *http.Client
}

// NewMailService creates a new MailService.
func NewMailService(baseURL, apiKey, from string, enabled bool) *MailService {
	return &MailService{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		enabled: enabled,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type mailMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send delivers a plain-text email.
func (s *MailService) Send(to, subject, text string) error {
	if !s.enabled || s.apiKey == "" {
		log.Printf("[Mail] provider not configured, mail to %s not sent", to)
		return nil
	}

	msg := mailMessage{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Text:    text,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Mail] failed to send: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("[Mail] unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("mail provider status %d", resp.StatusCode)
	}

	return nil
}

// SendOTP emails a verification code.
func (s *MailService) SendOTP(to, code string) error {
	return s.Send(to, "Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code))
}
