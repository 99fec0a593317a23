package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is an HTTP Gateway implementation. Request and response bodies are
// small fixed-shape JSON documents encoded with jx.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient creates a Client for the gateway at baseURL, authenticating
// with the given secret key. The underlying transport is instrumented with
// otelhttp.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateIntent requests a payment authorization handle for amountMinor.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64) (*Intent, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("amount")
	e.Int64(amountMinor)
	e.ObjEnd()

	body, err := c.post(ctx, "/v1/payment_intents", e.Bytes())
	if err != nil {
		return nil, err
	}

	var intent Intent
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "client_secret":
			s, err := d.Str()
			if err != nil {
				return err
			}
			intent.ClientSecret = s
			return nil
		case "error":
			return decodeGatewayError(d)
		default:
			return d.Skip()
		}
	}); err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			return nil, gerr
		}
		return nil, errors.Wrap(err, "decode intent response")
	}

	if intent.ClientSecret == "" {
		return nil, &Error{Message: "gateway returned no client secret"}
	}
	return &intent, nil
}

// ConfirmIntent submits the card details for confirmation against the
// authorization handle identified by clientSecret.
func (c *Client) ConfirmIntent(ctx context.Context, clientSecret string, card Card) (*Confirmation, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("client_secret")
	e.Str(clientSecret)
	e.FieldStart("card")
	e.ObjStart()
	e.FieldStart("number")
	e.Str(card.Number)
	e.FieldStart("exp_month")
	e.Str(card.ExpMonth)
	e.FieldStart("exp_year")
	e.Str(card.ExpYear)
	e.FieldStart("cvc")
	e.Str(card.CVC)
	e.ObjEnd()
	e.ObjEnd()

	body, err := c.post(ctx, "/v1/payment_intents/confirm", e.Bytes())
	if err != nil {
		return nil, err
	}

	var conf Confirmation
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "payment_intent":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "id":
					s, err := d.Str()
					if err != nil {
						return err
					}
					conf.TransactionID = s
					return nil
				case "status":
					s, err := d.Str()
					if err != nil {
						return err
					}
					conf.Status = s
					return nil
				default:
					return d.Skip()
				}
			})
		case "error":
			return decodeGatewayError(d)
		default:
			return d.Skip()
		}
	}); err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			return nil, gerr
		}
		return nil, errors.Wrap(err, "decode confirmation response")
	}

	if conf.TransactionID == "" {
		return nil, &Error{Message: "gateway returned no payment intent"}
	}
	return &conf, nil
}

// post sends a JSON body and returns the raw response body. Transport
// failures are wrapped as *NetworkError; non-2xx responses with no parsable
// error object become *Error with the raw body as message.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode >= 500 {
		return nil, &NetworkError{Err: errors.Errorf("gateway returned %d", resp.StatusCode)}
	}
	return data, nil
}

// decodeGatewayError decodes an {"error": {"message": ...}} object and
// returns it as *Error, preserving the gateway's message verbatim.
func decodeGatewayError(d *jx.Decoder) error {
	msg := "payment rejected"
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "message" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		msg = s
		return nil
	}); err != nil {
		return err
	}
	return &Error{Message: msg}
}
