package payment

import "fmt"

// ApplyMethod fills the method specific part of a charge for the buyer's
// chosen payment method. callbackURL is where e-wallet apps return the buyer.
func (r *ChargeRequest) ApplyMethod(method, callbackURL string) error {
	switch method {
	case "qris", "ovo", "dana":
		// OVO and DANA have no Core API channel; buyers pay them through QRIS.
		r.PaymentType = "qris"
		r.QRIS = &QRIS{Acquirer: "gopay"}
	case "bca", "bni", "bri":
		r.PaymentType = "bank_transfer"
		r.BankTransfer = &BankTransfer{Bank: method}
	case "permata":
		r.PaymentType = "bank_transfer"
		r.BankTransfer = &BankTransfer{Bank: "permata"}
	case "mandiri":
		r.PaymentType = "echannel"
		r.EChannel = &EChannel{BillInfo1: "Payment:", BillInfo2: "Software License"}
	case "gopay":
		r.PaymentType = "gopay"
		r.GoPay = &Callback{EnableCallback: true, CallbackURL: callbackURL}
	case "shopeepay":
		r.PaymentType = "shopeepay"
		r.ShopeePay = &Callback{CallbackURL: callbackURL}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	return nil
}
