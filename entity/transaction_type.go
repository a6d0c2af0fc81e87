// Package entity defines data models for the relay service.
package entity

type TransactionType string

const (
	Sale   TransactionType = "SALE"
	Status TransactionType = "STATUS"
	UpiQr  TransactionType = "UPIQR"
)

func (t TransactionType) String() string {
	return string(t)
}

// Operation is the name used in routes, logs and metrics labels.
func (t TransactionType) Operation() string {
	switch t {
	case Sale:
		return "initiate-payment"
	case Status:
		return "check-payment-status"
	case UpiQr:
		return "initiate-upi-app"
	default:
		return "unknown"
	}
}
