package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

const (
	sandboxCoreHost    = "api.sandbox.midtrans.com"
	productionCoreHost = "api.midtrans.com"
	sandboxSnapHost    = "app.sandbox.midtrans.com"
	productionSnapHost = "app.midtrans.com"
)

type Options struct {
	ServerKey    string
	IsProduction bool
	// CoreBaseURL and SnapBaseURL send Core and Snap calls to another host.
	// Only the scheme and host are used.
	CoreBaseURL string
	SnapBaseURL string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client talks to the Midtrans Core and Snap APIs.
type Client struct {
	serverKey string
	core      coreapi.Client
	snap      snap.Client
}

func New(opts Options) *Client {
	env := midtrans.Sandbox
	coreHost, snapHost := sandboxCoreHost, sandboxSnapHost

	if opts.IsProduction {
		env = midtrans.Production
		coreHost, snapHost = productionCoreHost, productionSnapHost
	}

	redirects := make(map[string]*url.URL)

	if u, err := url.Parse(opts.CoreBaseURL); err == nil && u.Host != "" {
		redirects[coreHost] = u
	}

	if u, err := url.Parse(opts.SnapBaseURL); err == nil && u.Host != "" {
		redirects[snapHost] = u
	}

	httpClient := newHTTPClient(opts, redirects)

	c := &Client{serverKey: opts.ServerKey}

	c.core.New(opts.ServerKey, env)
	c.snap.New(opts.ServerKey, env)

	coreHTTP := midtrans.GetHttpClient(env)
	coreHTTP.HttpClient = httpClient
	c.core.HttpClient = coreHTTP

	snapHTTP := midtrans.GetHttpClient(env)
	snapHTTP.HttpClient = httpClient
	c.snap.HttpClient = snapHTTP

	return c
}

func newHTTPClient(opts Options, redirects map[string]*url.URL) *http.Client {
	var client http.Client

	if opts.HTTPClient != nil {
		client = *opts.HTTPClient
	} else {
		client.Timeout = opts.Timeout
		if client.Timeout == 0 {
			client.Timeout = 30 * time.Second
		}
	}

	if len(redirects) > 0 {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}

		client.Transport = &redirectTransport{base: base, redirects: redirects}
	}

	return &client
}

// redirectTransport rewrites requests for a gateway host to its override.
type redirectTransport struct {
	base      http.RoundTripper
	redirects map[string]*url.URL
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, ok := t.redirects[req.URL.Host]
	if !ok {
		return t.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.URL.Scheme = target.Scheme
	out.URL.Host = target.Host
	out.Host = target.Host

	return t.base.RoundTrip(out)
}

func callOptions(ctx context.Context) *midtrans.ConfigOptions {
	opts := &midtrans.ConfigOptions{}
	opts.SetContext(ctx)

	return opts
}

// Charge creates a Core API transaction.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	payload, err := toMap(req)
	if err != nil {
		return nil, err
	}

	core := c.core
	core.Options = callOptions(ctx)

	chargeReq := coreapi.ChargeReqWithMap(payload)

	result, mErr := core.ChargeTransactionWithMap(&chargeReq)
	if mErr != nil {
		return nil, fmt.Errorf("charging order %s: %w", req.TransactionDetails.OrderID, gatewayError(mErr))
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding charge response: %w", err)
	}

	var resp ChargeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding charge response: %w", err)
	}

	if code := parseCode(resp.StatusCode); code >= 300 {
		return nil, &APIError{StatusCode: code, Message: resp.StatusMessage}
	}

	resp.Raw = body

	return &resp, nil
}

// CreateSnap requests a Snap checkout token.
func (c *Client) CreateSnap(ctx context.Context, req SnapRequest) (*SnapResponse, error) {
	payload, err := toMap(req)
	if err != nil {
		return nil, err
	}

	s := c.snap
	s.Options = callOptions(ctx)

	snapReq := snap.RequestParamWithMap(payload)

	result, mErr := s.CreateTransactionWithMap(&snapReq)
	if mErr != nil {
		return nil, fmt.Errorf("creating snap transaction %s: %w", req.TransactionDetails.OrderID, gatewayError(mErr))
	}

	token, _ := result["token"].(string)
	redirectURL, _ := result["redirect_url"].(string)

	if token == "" {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "snap response without token"}
	}

	return &SnapResponse{Token: token, RedirectURL: redirectURL}, nil
}

// Status asks the gateway for the authoritative state of an order. An
// unknown order wraps ErrTransactionNotFound whether the gateway signals it
// with an HTTP 404 or with a 404 status_code in a 200 body.
func (c *Client) Status(ctx context.Context, orderID string) (*Status, error) {
	core := c.core
	core.Options = callOptions(ctx)

	resp, mErr := core.CheckTransaction(url.PathEscape(orderID))
	if mErr != nil {
		err := gatewayError(mErr)

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			err = fmt.Errorf("%w: %w", ErrTransactionNotFound, err)
		}

		return nil, fmt.Errorf("querying status of %s: %w", orderID, err)
	}

	st := &Status{
		OrderID:           resp.OrderID,
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
		PaymentType:       resp.PaymentType,
		StatusCode:        resp.StatusCode,
		StatusMessage:     resp.StatusMessage,
		GrossAmount:       resp.GrossAmount,
		SignatureKey:      resp.SignatureKey,
	}

	if st.TransactionStatus == "" {
		code := parseCode(st.StatusCode)
		apiErr := &APIError{StatusCode: code, Message: st.StatusMessage}

		if code == http.StatusNotFound {
			return nil, fmt.Errorf("querying status of %s: %w: %w", orderID, ErrTransactionNotFound, apiErr)
		}

		return nil, fmt.Errorf("querying status of %s: %w", orderID, apiErr)
	}

	return st, nil
}

// VerifyNotification authenticates a webhook body. The signature must match
// and the returned status always comes from a fresh status query.
func (c *Client) VerifyNotification(ctx context.Context, raw []byte) (*Status, error) {
	var n Status
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}

	if n.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order_id", ErrInvalidSignature)
	}

	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, c.serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.SignatureKey))) != 1 {
		return nil, ErrInvalidSignature
	}

	return c.Status(ctx, n.OrderID)
}

// Signature computes the notification signature_key.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// gatewayError turns an SDK error into an APIError when the gateway
// answered, and into a transport error when it did not.
func gatewayError(e *midtrans.Error) error {
	if e.RawApiResponse == nil {
		return fmt.Errorf("executing request: %s", e.Message)
	}

	msg := errorMessage(e.RawApiResponse.RawBody)
	if msg == "" {
		msg = e.Message
	}

	return &APIError{StatusCode: e.StatusCode, Message: msg}
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	return m, nil
}

func errorMessage(body []byte) string {
	var e struct {
		StatusMessage string   `json:"status_message"`
		ErrorMessages []string `json:"error_messages"`
	}

	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}

	if len(e.ErrorMessages) > 0 {
		return strings.Join(e.ErrorMessages, "; ")
	}

	return e.StatusMessage
}

func parseCode(s string) int {
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return code
}
