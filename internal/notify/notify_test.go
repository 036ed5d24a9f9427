package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primadev/licensehub/internal/notify"
)

func newMessage(kind notify.Kind) notify.Message {
	return notify.Message{
		Kind:          kind,
		Name:          "Budi",
		Email:         "budi@example.com",
		LicenseKey:    "PRIMA-AB12-CD34-EF56",
		AppName:       "Struk SPBU",
		Type:          "monthly",
		ExpiryDate:    "2024-02-15",
		TransactionID: "ORDER-1-1",
	}
}

func TestEmailJS_Send(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	sender := notify.NewEmailJS(notify.Options{
		ServiceID:  "service_1",
		TemplateID: "template_1",
		PublicKey:  "public",
		PrivateKey: "private",
		Endpoint:   srv.URL,
	})

	require.NoError(t, sender.Send(context.Background(), newMessage(notify.KindNewLicense)))

	assert.Equal(t, "service_1", got["service_id"])
	assert.Equal(t, "public", got["user_id"])
	assert.Equal(t, "private", got["accessToken"])

	params, ok := got["template_params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "budi@example.com", params["to_email"])
	assert.Equal(t, "PRIMA-AB12-CD34-EF56", params["license_key"])
	assert.Equal(t, "Struk SPBU (monthly)", params["type"])
	assert.Contains(t, params["message_html"], "PRIMA-AB12-CD34-EF56")
}

func TestEmailJS_Send_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "The user ID is invalid", http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := notify.NewEmailJS(notify.Options{ServiceID: "service_1", Endpoint: srv.URL})

	err := sender.Send(context.Background(), newMessage(notify.KindRenewal))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestEmailJS_Send_Disabled(t *testing.T) {
	sender := notify.NewEmailJS(notify.Options{Endpoint: "http://127.0.0.1:0"})

	assert.False(t, sender.Enabled())
	assert.NoError(t, sender.Send(context.Background(), newMessage(notify.KindNewLicense)))
}

func TestEmailJS_Render(t *testing.T) {
	sender := notify.NewEmailJS(notify.Options{
		InvoiceBaseURL: "https://shop.example.com/api/v1/invoices/",
		Now:            func() time.Time { return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC) },
	})

	t.Run("NewLicense", func(t *testing.T) {
		html, err := sender.Render(newMessage(notify.KindNewLicense))
		require.NoError(t, err)
		assert.Contains(t, html, "MONTHLY")
		assert.Contains(t, html, "https://shop.example.com/api/v1/invoices/PRIMA-AB12-CD34-EF56")
		assert.Contains(t, html, "2024 PrimaDev")
	})

	t.Run("Renewal", func(t *testing.T) {
		html, err := sender.Render(newMessage(notify.KindRenewal))
		require.NoError(t, err)
		assert.Contains(t, html, "Hingga 2024-02-15")
	})

	t.Run("EscapesInput", func(t *testing.T) {
		msg := newMessage(notify.KindNewLicense)
		msg.Name = "<script>"

		html, err := sender.Render(msg)
		require.NoError(t, err)
		assert.NotContains(t, html, "<script>")
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := sender.Render(notify.Message{Kind: "promo"})
		assert.ErrorIs(t, err, notify.ErrUnknownKind)
	})
}
