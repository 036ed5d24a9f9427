package transaction

import (
	"time"

	"github.com/primadev/licensehub/internal/license"
	"github.com/primadev/licensehub/internal/transaction"
)

type transactionResponse struct {
	OrderID          string                `json:"orderId"`
	Status           transaction.Status    `json:"status"`
	Amount           int64                 `json:"amount"`
	OrderType        transaction.OrderType `json:"orderType"`
	TargetLicenseKey string                `json:"targetLicenseKey,omitempty"`
	Duration         license.Duration      `json:"duration"`
	CustomerName     string                `json:"customerName"`
	CustomerEmail    string                `json:"customerEmail"`
	CustomerPhone    string                `json:"customerPhone,omitempty"`
	AppName          string                `json:"appName,omitempty"`
	AppID            string                `json:"appId,omitempty"`
	PaymentMethod    string                `json:"paymentMethod,omitempty"`
	PaymentType      string                `json:"paymentType,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	PaidAt           *time.Time            `json:"paidAt,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		OrderID:          tx.OrderID,
		Status:           tx.Status,
		Amount:           tx.Amount,
		OrderType:        tx.OrderType,
		TargetLicenseKey: tx.TargetLicenseKey,
		Duration:         tx.Duration,
		CustomerName:     tx.CustomerName,
		CustomerEmail:    tx.CustomerEmail,
		CustomerPhone:    tx.CustomerPhone,
		AppName:          tx.AppName,
		AppID:            tx.AppID,
		PaymentMethod:    tx.PaymentMethod,
		PaymentType:      tx.PaymentType,
		CreatedAt:        tx.CreatedAt,
		PaidAt:           tx.PaidAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
