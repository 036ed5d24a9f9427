package notify

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("").Funcs(template.FuncMap{"upper": strings.ToUpper}).ParseFS(templateFS, "templates/*.html"),
)

var ErrUnknownKind = errors.New("unknown message kind")

type Kind string

const (
	KindNewLicense Kind = "new_license"
	KindRenewal    Kind = "renewal"
)

// Message describes one license email.
type Message struct {
	Kind          Kind
	Name          string
	Email         string
	LicenseKey    string
	AppName       string
	Type          string
	ExpiryDate    string
	TransactionID string
}

const defaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

type Options struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Endpoint   string
	// Brand is the sender name shown in templates.
	Brand string
	// InvoiceBaseURL, when set, links the invoice of the license in new
	// license emails.
	InvoiceBaseURL string
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Now            func() time.Time
}

// EmailJS sends license emails through the EmailJS REST relay. With no
// service id configured every Send is a logged no-op.
type EmailJS struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

func NewEmailJS(opts Options) *EmailJS {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EmailJS{opts: opts, client: client, logger: logger}
}

func (e *EmailJS) Enabled() bool {
	return e.opts.ServiceID != ""
}

type templateParams struct {
	ToEmail     string `json:"to_email"`
	ToName      string `json:"to_name"`
	LicenseKey  string `json:"license_key"`
	ExpiryDate  string `json:"expiry_date"`
	Type        string `json:"type"`
	MessageHTML string `json:"message_html"`
}

type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	AccessToken    string         `json:"accessToken,omitempty"`
	TemplateParams templateParams `json:"template_params"`
}

func (e *EmailJS) Send(ctx context.Context, msg Message) error {
	if !e.Enabled() {
		e.logger.Debug("email disabled, skipping", "kind", msg.Kind, "license_key", msg.LicenseKey)
		return nil
	}

	html, err := e.Render(msg)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s (%s)", msg.AppName, msg.Type)
	if msg.Kind == KindRenewal {
		subject = "Perpanjangan " + msg.AppName
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:   e.opts.ServiceID,
		TemplateID:  e.opts.TemplateID,
		UserID:      e.opts.PublicKey,
		AccessToken: e.opts.PrivateKey,
		TemplateParams: templateParams{
			ToEmail:     msg.Email,
			ToName:      msg.Name,
			LicenseKey:  msg.LicenseKey,
			ExpiryDate:  msg.ExpiryDate,
			Type:        subject,
			MessageHTML: html,
		},
	})
	if err != nil {
		return fmt.Errorf("encoding email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}

// Render produces the HTML body for msg.
func (e *EmailJS) Render(msg Message) (string, error) {
	var name string

	switch msg.Kind {
	case KindNewLicense:
		name = "new_license.html"
	case KindRenewal:
		name = "renewal.html"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}

	brand := e.opts.Brand
	if brand == "" {
		brand = "PrimaDev"
	}

	var invoiceURL string
	if e.opts.InvoiceBaseURL != "" {
		invoiceURL = strings.TrimRight(e.opts.InvoiceBaseURL, "/") + "/" + msg.LicenseKey
	}

	data := struct {
		Message
		Brand      string
		InvoiceURL string
		Year       int
	}{msg, brand, invoiceURL, e.opts.Now().Year()}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}

	return buf.String(), nil
}
