package internal

import (
	"encoding/json"
	"fmt"
	"jiorelay/entity"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	currencyINR      = "356"
	payTypeDefault   = "0"
	txnNoPrefix      = "Txn"
	txnDateLength    = 14
	missingFieldsMsg = "Missing required fields"
	maxExponent      = 30
)

var requiredFields = map[entity.TransactionType][]string{
	entity.Sale:   {entity.FieldAmount, entity.FieldCustomerEmailID},
	entity.Status: {entity.FieldMerchantTxnNo},
	entity.UpiQr: {
		entity.FieldAmount,
		entity.FieldMerchantRefNo,
		entity.FieldMobileNo,
		entity.FieldEmailID,
		entity.FieldInvoiceNo,
		entity.FieldInvoiceDate,
	},
}

// EnvelopeBuilder assembles and signs the parameter set of each transaction type.
type EnvelopeBuilder struct {
	credential entity.MerchantCredential
	returnUrl  string
	now        func() time.Time
}

func NewEnvelopeBuilder(credential entity.MerchantCredential, returnUrl string) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		credential: credential,
		returnUrl:  returnUrl,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for merchantTxnNo and txnDate.
func (b *EnvelopeBuilder) SetClock(now func() time.Time) {
	b.now = now
}

// Build validates the caller fields, builds the unsigned envelope and appends secureHash.
// No hashing happens when validation fails.
func (b *EnvelopeBuilder) Build(transactionType entity.TransactionType, body map[string]any) (*entity.Envelope, error) {
	fields, err := b.callerFields(transactionType, body)
	if err != nil {
		return nil, err
	}

	var envelope *entity.Envelope
	switch transactionType {
	case entity.Sale:
		envelope = b.sale(fields)
	case entity.Status:
		envelope = b.status(fields)
	case entity.UpiQr:
		envelope = b.upiQr(fields)
	default:
		return nil, fmt.Errorf("unsupported transaction type %q", transactionType)
	}

	hash, err := Sign(envelope.Params(), b.credential.MerchantKey())
	if err != nil {
		return nil, err
	}
	envelope.Set(entity.FieldSecureHash, hash)
	return envelope, nil
}

func (b *EnvelopeBuilder) sale(fields map[string]any) *entity.Envelope {
	now := b.now()
	txnNo := NewMerchantTxnNo(now)

	envelope := entity.NewEnvelope(entity.Sale)
	envelope.MerchantTxnNo = txnNo
	envelope.Set(entity.FieldMerchantId, b.credential.MerchantId())
	envelope.Set(entity.FieldMerchantTxnNo, txnNo)
	envelope.Set(entity.FieldAmount, fields[entity.FieldAmount])
	envelope.Set(entity.FieldCurrencyCode, currencyINR)
	envelope.Set(entity.FieldPayType, payTypeDefault)
	envelope.Set(entity.FieldCustomerEmailID, fields[entity.FieldCustomerEmailID])
	envelope.Set(entity.FieldTransactionType, entity.Sale.String())
	envelope.Set(entity.FieldReturnURL, b.returnUrl)
	envelope.Set(entity.FieldTxnDate, CompactTimestamp(now))
	return envelope
}

func (b *EnvelopeBuilder) status(fields map[string]any) *entity.Envelope {
	txnNo := fields[entity.FieldMerchantTxnNo]

	envelope := entity.NewEnvelope(entity.Status)
	envelope.Set(entity.FieldMerchantId, b.credential.MerchantId())
	envelope.Set(entity.FieldTransactionType, entity.Status.String())
	envelope.Set(entity.FieldMerchantTxnNo, txnNo)
	envelope.Set(entity.FieldOriginalTxnNo, txnNo)
	return envelope
}

func (b *EnvelopeBuilder) upiQr(fields map[string]any) *entity.Envelope {
	customerId := fields[entity.FieldCustomerID]
	if customerId == nil {
		customerId = ""
	}

	envelope := entity.NewEnvelope(entity.UpiQr)
	envelope.Set(entity.FieldMerchantId, b.credential.MerchantId())
	envelope.Set(entity.FieldMerchantRefNo, fields[entity.FieldMerchantRefNo])
	envelope.Set(entity.FieldAmount, fields[entity.FieldAmount])
	envelope.Set(entity.FieldCurrency, currencyINR)
	envelope.Set(entity.FieldMobileNo, fields[entity.FieldMobileNo])
	envelope.Set(entity.FieldEmailID, fields[entity.FieldEmailID])
	envelope.Set(entity.FieldInvoiceNo, fields[entity.FieldInvoiceNo])
	envelope.Set(entity.FieldRequestType, entity.UpiQr.String())
	envelope.Set(entity.FieldCustomerID, customerId)
	envelope.Set(entity.FieldInvoiceDate, fields[entity.FieldInvoiceDate])
	return envelope
}

// callerFields picks the fields a transaction type reads from the caller body,
// normalizes their values and reports the missing ones.
func (b *EnvelopeBuilder) callerFields(transactionType entity.TransactionType, body map[string]any) (map[string]any, error) {
	required, ok := requiredFields[transactionType]
	if !ok {
		return nil, fmt.Errorf("unsupported transaction type %q", transactionType)
	}
	names := required
	if transactionType == entity.UpiQr {
		names = append(append([]string{}, required...), entity.FieldCustomerID)
	}

	fields := make(map[string]any, len(names))
	for _, name := range names {
		value, err := normalizeValue(name, body[name])
		if err != nil {
			return nil, err
		}
		fields[name] = value
	}

	var missing []string
	for _, name := range required {
		if !isPresent(fields[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		if transactionType == entity.Status {
			return nil, errMissingField("Missing merchantTxnNo", missing...)
		}
		return nil, errMissingField(missingFieldsMsg, missing...)
	}
	return fields, nil
}

// normalizeValue renders caller numbers in their shortest decimal form,
// so the signed text and the transmitted text are the same.
func normalizeValue(name string, value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool:
		return v, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil || checkMagnitude(d) != nil {
			return nil, errMalformedParameter(name, value, http.StatusBadRequest)
		}
		return json.Number(d.String()), nil
	case float64:
		d := decimal.NewFromFloat(v)
		if checkMagnitude(d) != nil {
			return nil, errMalformedParameter(name, value, http.StatusBadRequest)
		}
		return json.Number(d.String()), nil
	default:
		return nil, errMalformedParameter(name, value, http.StatusBadRequest)
	}
}

// checkMagnitude bounds the length of d.String(), which grows with the exponent
// and not with the size of the input text.
func checkMagnitude(d decimal.Decimal) error {
	exp := int(d.Exponent())
	if exp > maxExponent {
		return fmt.Errorf("number exponent %d out of range", exp)
	}
	digits := int(float64(d.Coefficient().BitLen())*math.Log10(2)) + 1
	if leadingZeros := -exp - digits; leadingZeros > maxExponent {
		return fmt.Errorf("number exponent %d out of range", exp)
	}
	return nil
}

// isPresent treats empty strings, zero numbers and false as absent.
func isPresent(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return err == nil && !d.IsZero()
	default:
		return true
	}
}

// NewMerchantTxnNo derives the merchant transaction number from the epoch milliseconds.
// Two calls within the same millisecond produce the same number.
func NewMerchantTxnNo(t time.Time) string {
	return fmt.Sprintf("%s%d", txnNoPrefix, t.UnixMilli())
}

// CompactTimestamp renders t as YYYYMMDDHHMMSS in UTC.
func CompactTimestamp(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, iso)
	if len(digits) > txnDateLength {
		digits = digits[:txnDateLength]
	}
	return digits
}
