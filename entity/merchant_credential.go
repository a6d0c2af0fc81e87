package entity

import (
	"errors"
	"fmt"
)

// MerchantCredential identifies the merchant account to the processor.
// Fields are unexported so the value cannot be mutated after startup.
type MerchantCredential struct {
	merchantId  string
	merchantKey string
}

func NewMerchantCredential(merchantId, merchantKey string) (MerchantCredential, error) {
	if merchantId == "" {
		return MerchantCredential{}, errors.New("empty merchant id")
	}
	if merchantKey == "" {
		return MerchantCredential{}, errors.New("empty merchant key")
	}
	return MerchantCredential{merchantId: merchantId, merchantKey: merchantKey}, nil
}

func (m MerchantCredential) MerchantId() string {
	return m.merchantId
}

func (m MerchantCredential) MerchantKey() string {
	return m.merchantKey
}

// String keeps the key out of logs and fmt output.
func (m MerchantCredential) String() string {
	return fmt.Sprintf("merchant %s (key ***)", m.merchantId)
}
