// Package campaign hands email campaigns to an external delivery service.
// Delivery is attempted once; failures are returned, never retried.
package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"possync/m/domain"
)

var (
	ErrNoRecipients = errors.New("no recipients")
	ErrInvalidEmail = errors.New("invalid email")
)

type Email struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Content    string   `json:"content"`
}

// Report is the delivery service's per-batch tally.
type Report struct {
	Total     int `json:"total"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

type Sender interface {
	Send(ctx context.Context, email Email) (Report, error)
}

// CustomerLister provides the customers that have an email address.
type CustomerLister interface {
	WithEmail(ctx context.Context) ([]domain.Customer, error)
}

type Service struct {
	sender    Sender
	customers CustomerLister
	log       *zap.Logger
}

func NewService(sender Sender, customers CustomerLister, log *zap.Logger) *Service {
	return &Service{sender: sender, customers: customers, log: log}
}

// Recipients returns the email address of every reachable customer.
func (s *Service) Recipients(ctx context.Context) ([]string, error) {
	customers, err := s.customers.WithEmail(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(customers))
	for _, c := range customers {
		out = append(out, *c.Email)
	}
	return out, nil
}

// SendEmail sends one campaign. With no explicit recipients it goes to all
// customers that have an email address.
func (s *Service) SendEmail(ctx context.Context, email Email) (Report, error) {
	if strings.TrimSpace(email.Subject) == "" || strings.TrimSpace(email.Content) == "" {
		return Report{}, fmt.Errorf("%w: subject and content are required", ErrInvalidEmail)
	}
	if len(email.Recipients) == 0 {
		recipients, err := s.Recipients(ctx)
		if err != nil {
			return Report{}, err
		}
		email.Recipients = recipients
	}
	if len(email.Recipients) == 0 {
		return Report{}, ErrNoRecipients
	}

	report, err := s.sender.Send(ctx, email)
	if err != nil {
		s.log.Error("campaign delivery failed", zap.Int("recipients", len(email.Recipients)), zap.Error(err))
		return Report{}, err
	}
	s.log.Info("campaign sent",
		zap.String("subject", email.Subject),
		zap.Int("total", report.Total),
		zap.Int("failures", report.Failures))
	return report, nil
}

// HTTPSender posts campaigns to a batch email endpoint.
type HTTPSender struct {
	URL        string
	HTTPClient *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{URL: url, HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

func (h *HTTPSender) Send(ctx context.Context, email Email) (Report, error) {
	if h.URL == "" {
		return Report{}, errors.New("campaign delivery is not configured")
	}
	body, err := json.Marshal(email)
	if err != nil {
		return Report{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return Report{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return Report{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Report{}, err
	}
	var payload struct {
		Success bool   `json:"success"`
		Data    Report `json:"data"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Report{}, fmt.Errorf("campaign delivery: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != http.StatusOK || !payload.Success {
		return Report{}, fmt.Errorf("campaign delivery: status %d: %s", resp.StatusCode, payload.Error)
	}
	return payload.Data, nil
}
