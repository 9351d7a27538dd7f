package campaign_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"possync/m/domain"
	"possync/m/internal/campaign"
)

type customers []domain.Customer

func (c customers) WithEmail(context.Context) ([]domain.Customer, error) {
	return c, nil
}

func email(s string) *string { return &s }

func TestSendEmailDefaultsToCustomers(t *testing.T) {
	var got campaign.Email
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"data":{"total":2,"successes":2,"failures":0}}`))
	}))
	defer srv.Close()

	svc := campaign.NewService(campaign.NewHTTPSender(srv.URL), customers{
		{ID: "1", Name: "Amina", Email: email("amina@example.com")},
		{ID: "2", Name: "Bilal", Email: email("bilal@example.com")},
	}, zap.NewNop())

	report, err := svc.SendEmail(context.Background(), campaign.Email{Subject: "Sale", Content: "<p>20% off</p>"})
	require.NoError(t, err)
	assert.Equal(t, campaign.Report{Total: 2, Successes: 2}, report)
	assert.Equal(t, []string{"amina@example.com", "bilal@example.com"}, got.Recipients)
	assert.Equal(t, "Sale", got.Subject)
}

func TestSendEmailWithoutRecipients(t *testing.T) {
	svc := campaign.NewService(campaign.NewHTTPSender("http://unused"), customers{}, zap.NewNop())
	_, err := svc.SendEmail(context.Background(), campaign.Email{Subject: "Sale", Content: "x"})
	assert.ErrorIs(t, err, campaign.ErrNoRecipients)

	_, err = svc.SendEmail(context.Background(), campaign.Email{Recipients: []string{"a@example.com"}})
	assert.ErrorIs(t, err, campaign.ErrInvalidEmail)
}

func TestHTTPSenderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"provider down"}`))
	}))
	defer srv.Close()

	_, err := campaign.NewHTTPSender(srv.URL).Send(context.Background(), campaign.Email{
		Recipients: []string{"a@example.com"}, Subject: "s", Content: "c",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}
