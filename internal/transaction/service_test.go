package transaction_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/primadev/licensehub/internal/catalog"
	"github.com/primadev/licensehub/internal/license"
	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/transaction"
)

var fixedNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

type mocks struct {
	repo     *transaction.MockRepository
	gateway  *transaction.MockGateway
	catalog  *transaction.MockCatalog
	licenses *transaction.MockLicenses
}

func newService(t *testing.T) (*transaction.Service, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		repo:     transaction.NewMockRepository(ctrl),
		gateway:  transaction.NewMockGateway(ctrl),
		catalog:  transaction.NewMockCatalog(ctrl),
		licenses: transaction.NewMockLicenses(ctrl),
	}

	svc := transaction.NewService(m.repo, m.gateway, m.catalog, m.licenses, "https://shop/thankyou.html",
		transaction.WithClock(func() time.Time { return fixedNow }))

	return svc, m
}

func TestNewOrderID(t *testing.T) {
	id := transaction.NewOrderID(fixedNow)
	assert.Regexp(t, regexp.MustCompile(`^ORDER-1705314600000-\d{1,3}$`), id)
}

func TestService_CreateCharge(t *testing.T) {
	product := &catalog.Product{AppID: "struk-spbu", Name: "Struk SPBU"}

	type testCase struct {
		name      string
		params    transaction.ChargeParams
		setupMock func(m mocks)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			params: transaction.ChargeParams{
				AppID: "struk-spbu", Duration: license.DurationMonthly,
				BuyerName: "Budi", BuyerEmail: "budi@example.com", PaymentMethod: "gopay",
			},
			setupMock: func(m mocks) {
				m.catalog.EXPECT().Quote(gomock.Any(), "struk-spbu", license.DurationMonthly).Return(product, int64(50000), nil)
				m.gateway.EXPECT().
					Charge(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req payment.ChargeRequest) (*payment.ChargeResponse, error) {
						assert.Equal(t, "gopay", req.PaymentType)
						assert.Equal(t, "https://shop/thankyou.html", req.GoPay.CallbackURL)
						assert.Equal(t, int64(50000), req.TransactionDetails.GrossAmount)
						assert.Equal(t, "Struk SPBU (monthly)", req.ItemDetails[0].Name)
						return &payment.ChargeResponse{OrderID: req.TransactionDetails.OrderID}, nil
					})
				m.repo.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, transaction.StatusPending, tx.Status)
						assert.Equal(t, transaction.OrderTypeNew, tx.OrderType)
						assert.Equal(t, "Struk SPBU", tx.AppName)
						assert.Empty(t, tx.TargetLicenseKey)
						return nil
					})
			},
		},
		{
			name:   "UnknownProduct",
			params: transaction.ChargeParams{AppID: "nope", Duration: license.DurationMonthly, PaymentMethod: "qris"},
			setupMock: func(m mocks) {
				m.catalog.EXPECT().Quote(gomock.Any(), "nope", license.DurationMonthly).Return(nil, int64(0), catalog.ErrNotFound)
			},
			wantErr: transaction.ErrInvalidProduct,
		},
		{
			name:   "CardRejected",
			params: transaction.ChargeParams{AppID: "struk-spbu", Duration: license.DurationMonthly, PaymentMethod: "card"},
			setupMock: func(m mocks) {
				m.catalog.EXPECT().Quote(gomock.Any(), gomock.Any(), gomock.Any()).Return(product, int64(50000), nil)
			},
			wantErr: payment.ErrUnsupportedMethod,
		},
		{
			name:   "GatewayError",
			params: transaction.ChargeParams{AppID: "struk-spbu", Duration: license.DurationMonthly, PaymentMethod: "bca"},
			setupMock: func(m mocks) {
				m.catalog.EXPECT().Quote(gomock.Any(), gomock.Any(), gomock.Any()).Return(product, int64(50000), nil)
				m.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(nil, &payment.APIError{StatusCode: 500})
			},
			wantErr: &payment.APIError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			tt.setupMock(m)

			_, err := svc.CreateCharge(context.Background(), tt.params)

			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
			case *payment.APIError:
				assert.ErrorAs(t, err, &want)
			default:
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestService_CreateSnapCheckout(t *testing.T) {
	type testCase struct {
		name      string
		params    transaction.SnapParams
		setupMock func(m mocks)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "NewOrder",
			params: transaction.SnapParams{
				Name: "Budi", Email: "budi@example.com", Amount: 50000,
				Duration: license.DurationMonthly, AppName: "Struk SPBU",
			},
			setupMock: func(m mocks) {
				m.gateway.EXPECT().
					CreateSnap(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req payment.SnapRequest) (*payment.SnapResponse, error) {
						assert.Equal(t, "monthly-sub", req.ItemDetails[0].ID)
						return &payment.SnapResponse{Token: "tok", RedirectURL: "https://pay/tok"}, nil
					})
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "Renewal",
			params: transaction.SnapParams{
				Amount: 500000, Duration: license.DurationYearly, AppName: "Struk SPBU",
				LicenseKey: "PRIMA-AAAA-BBBB-CCCC", OrderType: transaction.OrderTypeRenewal,
			},
			setupMock: func(m mocks) {
				m.licenses.EXPECT().LicenseExists(gomock.Any(), "PRIMA-AAAA-BBBB-CCCC").Return(true, nil)
				m.gateway.EXPECT().
					CreateSnap(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req payment.SnapRequest) (*payment.SnapResponse, error) {
						assert.Equal(t, "RENEWAL-SRV", req.ItemDetails[0].ID)
						assert.Equal(t, "Perpanjang Lisensi (yearly)", req.ItemDetails[0].Name)
						return &payment.SnapResponse{Token: "tok"}, nil
					})
				m.repo.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, transaction.OrderTypeRenewal, tx.OrderType)
						assert.Equal(t, "PRIMA-AAAA-BBBB-CCCC", tx.TargetLicenseKey)
						return nil
					})
			},
		},
		{
			name: "CatalogPriceMatches",
			params: transaction.SnapParams{
				Email: "budi@example.com", Amount: 50000, Duration: license.DurationMonthly,
				AppName: "ignored", AppID: "struk-spbu",
			},
			setupMock: func(m mocks) {
				m.catalog.EXPECT().
					Quote(gomock.Any(), "struk-spbu", license.DurationMonthly).
					Return(&catalog.Product{AppID: "struk-spbu", Name: "Struk SPBU"}, int64(50000), nil)
				m.gateway.EXPECT().CreateSnap(gomock.Any(), gomock.Any()).Return(&payment.SnapResponse{Token: "tok"}, nil)
				m.repo.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, "struk-spbu", tx.AppID)
						assert.Equal(t, "Struk SPBU", tx.AppName)
						return nil
					})
			},
		},
		{
			name: "AmountBelowCatalogPrice",
			params: transaction.SnapParams{
				Amount: 1, Duration: license.DurationLifetime, AppID: "struk-spbu",
			},
			setupMock: func(m mocks) {
				m.catalog.EXPECT().
					Quote(gomock.Any(), "struk-spbu", license.DurationLifetime).
					Return(&catalog.Product{AppID: "struk-spbu"}, int64(1500000), nil)
			},
			wantErr: transaction.ErrInvalidAmount,
		},
		{
			name:   "UnknownCatalogProduct",
			params: transaction.SnapParams{Amount: 1000, Duration: license.DurationMonthly, AppID: "nope"},
			setupMock: func(m mocks) {
				m.catalog.EXPECT().
					Quote(gomock.Any(), "nope", license.DurationMonthly).
					Return(nil, int64(0), catalog.ErrNotFound)
			},
			wantErr: transaction.ErrInvalidProduct,
		},
		{
			name:      "ZeroAmount",
			params:    transaction.SnapParams{Amount: 0},
			setupMock: func(mocks) {},
			wantErr:   transaction.ErrInvalidAmount,
		},
		{
			name:      "RenewalWithoutKey",
			params:    transaction.SnapParams{Amount: 100, OrderType: transaction.OrderTypeRenewal},
			setupMock: func(mocks) {},
			wantErr:   transaction.ErrMissingLicense,
		},
		{
			name:   "RenewalUnknownLicense",
			params: transaction.SnapParams{Amount: 100, OrderType: transaction.OrderTypeRenewal, LicenseKey: "PRIMA-XXXX-XXXX-XXXX"},
			setupMock: func(m mocks) {
				m.licenses.EXPECT().LicenseExists(gomock.Any(), "PRIMA-XXXX-XXXX-XXXX").Return(false, nil)
			},
			wantErr: transaction.ErrLicenseNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			tt.setupMock(m)

			got, err := svc.CreateSnapCheckout(context.Background(), tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "tok", got.Token)
			assert.True(t, strings.HasPrefix(got.OrderID, "ORDER-"))
		})
	}
}

func TestService_CreateSnapCheckout_TruncatesItemName(t *testing.T) {
	svc, m := newService(t)

	m.gateway.EXPECT().
		CreateSnap(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req payment.SnapRequest) (*payment.SnapResponse, error) {
			assert.Len(t, []rune(req.ItemDetails[0].Name), 50)
			return &payment.SnapResponse{Token: "tok"}, nil
		})
	m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)

	_, err := svc.CreateSnapCheckout(context.Background(), transaction.SnapParams{
		Amount:   1000,
		Duration: license.DurationLifetime,
		AppName:  strings.Repeat("Aplikasi Kasir ", 10),
	})
	require.NoError(t, err)
}

func TestService_Notifications(t *testing.T) {
	svc, m := newService(t)

	var recorded *transaction.Notification

	m.repo.EXPECT().
		RecordNotification(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *transaction.Notification) error {
			recorded = n
			return nil
		})

	n, err := svc.RecordNotification(context.Background(),
		&payment.Status{OrderID: "ORDER-1", TransactionStatus: payment.StatusSettlement}, []byte(`{}`))
	require.NoError(t, err)
	assert.Same(t, recorded, n)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, transaction.NotificationReceived, n.Status)

	m.repo.EXPECT().FinishNotification(gomock.Any(), n.ID, transaction.NotificationHandleFailed, "boom").Return(nil)
	svc.FinishNotification(context.Background(), n, errors.New("boom"))

	m.repo.EXPECT().FinishNotification(gomock.Any(), n.ID, transaction.NotificationHandled, "").Return(errors.New("db down"))
	svc.FinishNotification(context.Background(), n, nil)
}
