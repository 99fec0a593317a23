package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sk_test", 2*time.Second)
}

func TestCreateIntent(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{"client_secret":"cs_abc"}`))
	})

	intent, err := client.CreateIntent(context.Background(), 100000)
	require.NoError(t, err)
	assert.Equal(t, "cs_abc", intent.ClientSecret)
	assert.Equal(t, float64(100000), gotBody["amount"])
}

func TestCreateIntent_GatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"amount too large"}}`))
	})

	_, err := client.CreateIntent(context.Background(), 1<<40)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "amount too large", gwErr.Message)
}

func TestCreateIntent_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreateIntent(context.Background(), 1000)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestCreateIntent_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, "sk_test", time.Second)

	_, err := client.CreateIntent(context.Background(), 1000)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestConfirmIntent(t *testing.T) {
	var gotBody struct {
		ClientSecret string `json:"client_secret"`
		Card         struct {
			Number   string `json:"number"`
			ExpMonth string `json:"exp_month"`
			ExpYear  string `json:"exp_year"`
			CVC      string `json:"cvc"`
		} `json:"card"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/confirm", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{"payment_intent":{"id":"pi_123","status":"succeeded"}}`))
	})

	conf, err := client.ConfirmIntent(context.Background(), "cs_abc", Card{
		Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "123",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", conf.TransactionID)
	assert.Equal(t, StatusSucceeded, conf.Status)
	assert.Equal(t, "cs_abc", gotBody.ClientSecret)
	assert.Equal(t, "4242424242424242", gotBody.Card.Number)
	assert.Equal(t, "12", gotBody.Card.ExpMonth)
}

func TestConfirmIntent_Declined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	})

	_, err := client.ConfirmIntent(context.Background(), "cs_abc", Card{})

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	// The gateway's message is preserved verbatim for the buyer.
	assert.Equal(t, "Your card was declined.", gwErr.Message)
}

func TestConfirmIntent_EmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.ConfirmIntent(context.Background(), "cs_abc", Card{})

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
}

func TestConfirmIntent_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.ConfirmIntent(ctx, "cs_abc", Card{})
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}
