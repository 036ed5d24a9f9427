package invoice_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primadev/licensehub/internal/invoice"
	"github.com/primadev/licensehub/internal/license"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"PRIMA-AB12-CD34-EF56", "INV-AB12CD34"},
		{"PRIMA-ab12", "INV-AB12"},
		{"LEGACY-KEY-1", "INV-LEGACYKE"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, invoice.Number(tt.key))
		})
	}
}

func TestRenderer_FormatIDR(t *testing.T) {
	r := invoice.NewRenderer(invoice.Options{})

	assert.Equal(t, "Rp 150.000", r.FormatIDR(150000))
	assert.Equal(t, "Rp 1.250.000", r.FormatIDR(1250000))
	assert.Equal(t, "Rp 0", r.FormatIDR(0))
}

func TestRenderer_Render(t *testing.T) {
	r := invoice.NewRenderer(invoice.Options{Brand: "PRIMADEV"})

	renewed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		lic  *license.License
	}{
		{
			name: "NewLicense",
			lic: &license.License{
				Key:           "PRIMA-AB12-CD34-EF56",
				Type:          license.DurationMonthly,
				Price:         50000,
				AppName:       "Struk SPBU",
				Name:          "Budi Santoso",
				Email:         "budi@example.com",
				PaymentMethod: "Midtrans (qris)",
				TransactionID: "ORDER-1",
				CreatedAt:     time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "RenewedWithAccents",
			lic: &license.License{
				Key:               "PRIMA-ZZ99-YY88-XX77",
				Type:              license.DurationYearly,
				Price:             450000,
				Name:              "José Müller",
				LastRenewalDate:   &renewed,
				LastTransactionID: "RENEW-2",
			},
		},
		{
			name: "Sparse",
			lic:  &license.License{Key: "PRIMA-0000-0000-0000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			require.NoError(t, r.Render(&buf, tt.lic))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
		})
	}
}
