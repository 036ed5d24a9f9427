package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/primadev/licensehub/internal/catalog"
	"github.com/primadev/licensehub/internal/license"
	"github.com/primadev/licensehub/internal/payment"
)

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingLicense  = errors.New("renewal requires a license key")
	ErrLicenseNotFound = errors.New("license to renew not found")
)

const (
	maxItemNameLen = 50
	storeSource    = "public_store"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, orderID string) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	RecordNotification(ctx context.Context, n *Notification) error
	FinishNotification(ctx context.Context, id uuid.UUID, status NotificationStatus, errText string) error
}

type Gateway interface {
	Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResponse, error)
	CreateSnap(ctx context.Context, req payment.SnapRequest) (*payment.SnapResponse, error)
}

type Catalog interface {
	Quote(ctx context.Context, appID string, d license.Duration) (*catalog.Product, int64, error)
}

type Licenses interface {
	LicenseExists(ctx context.Context, key string) (bool, error)
}

type Service struct {
	repo        Repository
	gateway     Gateway
	catalog     Catalog
	licenses    Licenses
	callbackURL string
	now         func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used for order ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, gateway Gateway, cat Catalog, licenses Licenses, callbackURL string, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		gateway:     gateway,
		catalog:     cat,
		licenses:    licenses,
		callbackURL: callbackURL,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewOrderID returns ORDER-<unix ms>-<0..999>.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORDER-%d-%d", now.UnixMilli(), rand.IntN(1000))
}

type ChargeParams struct {
	AppID         string
	Duration      license.Duration
	BuyerName     string
	BuyerEmail    string
	BuyerPhone    string
	PaymentMethod string
}

// CreateCharge prices the product from the catalog, opens a Core API charge
// and records the pending NEW order.
func (s *Service) CreateCharge(ctx context.Context, p ChargeParams) (*payment.ChargeResponse, error) {
	product, price, err := s.catalog.Quote(ctx, p.AppID, p.Duration)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrNoPrice) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
		}

		return nil, fmt.Errorf("quoting product: %w", err)
	}

	orderID := NewOrderID(s.now())

	req := payment.ChargeRequest{
		TransactionDetails: payment.TransactionDetails{OrderID: orderID, GrossAmount: price},
		CustomerDetails: &payment.CustomerDetails{
			FirstName: p.BuyerName,
			Email:     p.BuyerEmail,
			Phone:     p.BuyerPhone,
		},
		ItemDetails: []payment.ItemDetail{{
			ID:       fmt.Sprintf("%s-%s", p.AppID, p.Duration),
			Price:    price,
			Quantity: 1,
			Name:     truncate(fmt.Sprintf("%s (%s)", product.Name, p.Duration), maxItemNameLen),
		}},
		CustomField1: p.AppID,
		CustomField2: string(p.Duration),
		CustomField3: storeSource,
	}

	if err := req.ApplyMethod(p.PaymentMethod, s.callbackURL); err != nil {
		return nil, err
	}

	resp, err := s.gateway.Charge(ctx, req)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		OrderID:       orderID,
		Status:        StatusPending,
		Amount:        price,
		OrderType:     OrderTypeNew,
		Duration:      p.Duration,
		CustomerName:  p.BuyerName,
		CustomerEmail: p.BuyerEmail,
		CustomerPhone: p.BuyerPhone,
		AppName:       product.Name,
		AppID:         p.AppID,
		PaymentMethod: p.PaymentMethod,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording order %s: %w", orderID, err)
	}

	return resp, nil
}

type SnapParams struct {
	Name       string
	Email      string
	Phone      string
	Amount     int64
	Duration   license.Duration
	AppName    string
	// AppID, when set, ties the order to a catalog product whose price the
	// amount must match.
	AppID      string
	LicenseKey string
	OrderType  OrderType
}

type SnapCheckout struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	OrderID     string `json:"orderId"`
}

// CreateSnapCheckout opens a Snap payment page for a NEW or RENEWAL order.
func (s *Service) CreateSnapCheckout(ctx context.Context, p SnapParams) (*SnapCheckout, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if p.OrderType == "" {
		p.OrderType = OrderTypeNew
	}

	if p.AppID != "" {
		product, price, err := s.catalog.Quote(ctx, p.AppID, p.Duration)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrNoPrice) {
				return nil, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
			}

			return nil, fmt.Errorf("quoting product: %w", err)
		}

		if p.Amount != price {
			return nil, fmt.Errorf("%w: %d does not match %s %s price %d", ErrInvalidAmount, p.Amount, p.AppID, p.Duration, price)
		}

		p.AppName = product.Name
	}

	itemID := string(p.Duration) + "-sub"
	itemName := fmt.Sprintf("Lisensi %s (%s)", p.AppName, p.Duration)

	if p.OrderType == OrderTypeRenewal {
		if p.LicenseKey == "" {
			return nil, ErrMissingLicense
		}

		exists, err := s.licenses.LicenseExists(ctx, p.LicenseKey)
		if err != nil {
			return nil, fmt.Errorf("checking license %s: %w", p.LicenseKey, err)
		}

		if !exists {
			return nil, ErrLicenseNotFound
		}

		itemID = "RENEWAL-SRV"
		itemName = fmt.Sprintf("Perpanjang Lisensi (%s)", p.Duration)
	} else {
		p.LicenseKey = ""
	}

	orderID := NewOrderID(s.now())

	resp, err := s.gateway.CreateSnap(ctx, payment.SnapRequest{
		TransactionDetails: payment.TransactionDetails{OrderID: orderID, GrossAmount: p.Amount},
		CustomerDetails:    &payment.CustomerDetails{FirstName: p.Name, Email: p.Email, Phone: p.Phone},
		ItemDetails: []payment.ItemDetail{{
			ID:       itemID,
			Price:    p.Amount,
			Quantity: 1,
			Name:     truncate(itemName, maxItemNameLen),
		}},
	})
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		OrderID:          orderID,
		Status:           StatusPending,
		Amount:           p.Amount,
		OrderType:        p.OrderType,
		TargetLicenseKey: p.LicenseKey,
		Duration:         p.Duration,
		CustomerName:     p.Name,
		CustomerEmail:    p.Email,
		CustomerPhone:    p.Phone,
		AppName:          p.AppName,
		AppID:            p.AppID,
		CreatedAt:        s.now().UTC(),
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording order %s: %w", orderID, err)
	}

	return &SnapCheckout{Token: resp.Token, RedirectURL: resp.RedirectURL, OrderID: orderID}, nil
}

type ListFilter struct {
	Status *Status
	Limit  int
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Get(ctx context.Context, orderID string) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, orderID)
}

// RecordNotification stores a verified webhook delivery before it is handled.
func (s *Service) RecordNotification(ctx context.Context, st *payment.Status, payload []byte) (*Notification, error) {
	n := &Notification{
		ID:                uuid.New(),
		OrderID:           st.OrderID,
		TransactionStatus: st.TransactionStatus,
		Payload:           payload,
		Status:            NotificationReceived,
		ReceivedAt:        s.now().UTC(),
	}

	if err := s.repo.RecordNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("recording notification: %w", err)
	}

	return n, nil
}

// FinishNotification marks a recorded delivery as handled, or as failed with
// the handling error. Failures here are logged only.
func (s *Service) FinishNotification(ctx context.Context, n *Notification, handleErr error) {
	status, errText := NotificationHandled, ""
	if handleErr != nil {
		status, errText = NotificationHandleFailed, handleErr.Error()
	}

	if err := s.repo.FinishNotification(ctx, n.ID, status, errText); err != nil {
		slog.Error("failed to finish notification", "id", n.ID, "order_id", n.OrderID, "error", err)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n])
}
