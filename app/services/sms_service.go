// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/utils"
)

// SMSService handles SMS sending operations
type SMSService interface {
	SendOTP(ctx context.Context, recipient, message string, leadID *int64) error
	SendSMS(ctx context.Context, recipient, message string, leadID *int64) error
}

// SMSServiceImpl implements SMSService
type SMSServiceImpl struct {
	config *config.SMSConfig
	client *http.Client
}

// SMSRequest represents the request payload for SMS API
type SMSRequest struct {
	SrcNum         string `json:"srcNum"`
	Recipient      string `json:"recipient"`
	Body           string `json:"body"`
	CustomerID     *int64 `json:"customerId,omitempty"`
	RetryCount     int    `json:"retryCount"`
	Type           int    `json:"type"` // Always 1
	ValidityPeriod int    `json:"validityPeriod"`
}

// SMSResponse represents individual message result from SMS API
type SMSResponse struct {
	MessageID  int64  `json:"messageId"`
	SrcNum     string `json:"srcNum"`
	Recipient  string `json:"recipient"`
	CustomerID *int64 `json:"customerId,omitempty"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewSMSService creates a new SMS service instance
func NewSMSService(cfg *config.SMSConfig) SMSService {
	return &SMSServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendOTP sends an OTP message via SMS
func (s *SMSServiceImpl) SendOTP(ctx context.Context, recipient, message string, leadID *int64) error {
	return s.SendSMS(ctx, recipient, message, leadID)
}

// SendSMS sends an SMS message
func (s *SMSServiceImpl) SendSMS(ctx context.Context, recipient, message string, leadID *int64) error {
	request := []SMSRequest{{
		SrcNum:         s.config.SourceNumber,
		Recipient:      recipient,
		Body:           message,
		CustomerID:     leadID,
		RetryCount:     s.config.RetryCount,
		Type:           1,
		ValidityPeriod: s.config.ValidityPeriod,
	}}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v3.0.1/send", s.config.ProviderDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	var results []SMSResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("failed to decode SMS response: %w", err)
	}
	for _, r := range results {
		if r.StatusCode != 200 || r.Status != "ACCEPTED" {
			return fmt.Errorf("SMS delivery failed for %s: %s (%d)", r.Recipient, r.Status, r.StatusCode)
		}
	}
	return nil
}

// MockSMSService implements SMSService for testing
type MockSMSService struct {
	SentMessages []MockSMSMessage
}

// MockSMSMessage represents a mock SMS message
type MockSMSMessage struct {
	Recipient string
	Message   string
	LeadID    *int64
	SentAt    time.Time
}

// NewMockSMSService creates a new mock SMS service
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{
		SentMessages: make([]MockSMSMessage, 0),
	}
}

// SendOTP sends a mock OTP message
func (m *MockSMSService) SendOTP(ctx context.Context, recipient, message string, leadID *int64) error {
	return m.SendSMS(ctx, recipient, message, leadID)
}

// SendSMS sends a mock SMS message
func (m *MockSMSService) SendSMS(ctx context.Context, recipient, message string, leadID *int64) error {
	m.SentMessages = append(m.SentMessages, MockSMSMessage{
		Recipient: recipient,
		Message:   message,
		LeadID:    leadID,
		SentAt:    utils.UTCNow(),
	})
	return nil
}

// GetSentMessages returns all sent mock messages
func (m *MockSMSService) GetSentMessages() []MockSMSMessage {
	return m.SentMessages
}

// ClearSentMessages clears the sent messages list
func (m *MockSMSService) ClearSentMessages() {
	m.SentMessages = make([]MockSMSMessage, 0)
}
