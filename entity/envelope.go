package entity

// Field names shared by the envelope builders and the gateway client.
const (
	FieldSecureHash      = "secureHash"
	FieldMerchantId      = "merchantId"
	FieldMerchantTxnNo   = "merchantTxnNo"
	FieldOriginalTxnNo   = "originalTxnNo"
	FieldAmount          = "amount"
	FieldCurrencyCode    = "currencyCode"
	FieldCurrency        = "currency"
	FieldPayType         = "payType"
	FieldCustomerEmailID = "customerEmailID"
	FieldTransactionType = "transactionType"
	FieldReturnURL       = "returnURL"
	FieldTxnDate         = "txnDate"
	FieldMerchantRefNo   = "merchantRefNo"
	FieldMobileNo        = "mobileNo"
	FieldEmailID         = "emailID"
	FieldInvoiceNo       = "invoiceNo"
	FieldInvoiceDate     = "invoiceDate"
	FieldRequestType     = "requestType"
	FieldCustomerID      = "customerID"
)

// ParameterSet is the unordered name to scalar value mapping that gets signed.
type ParameterSet map[string]any

type Parameter struct {
	Name  string
	Value any
}

// Envelope is the ordered parameter list sent to the processor.
// Order matters only for serialization; the signature does not depend on it.
type Envelope struct {
	Type          TransactionType
	MerchantTxnNo string
	Fields        []Parameter
}

func NewEnvelope(transactionType TransactionType) *Envelope {
	return &Envelope{Type: transactionType}
}

// Set adds a field or replaces the value of an existing one keeping its position.
func (e *Envelope) Set(name string, value any) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			e.Fields[i].Value = value
			return
		}
	}
	e.Fields = append(e.Fields, Parameter{Name: name, Value: value})
}

func (e *Envelope) Get(name string) (any, bool) {
	for _, field := range e.Fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// Params returns the fields as a ParameterSet, omitting the secure hash.
func (e *Envelope) Params() ParameterSet {
	params := make(ParameterSet, len(e.Fields))
	for _, field := range e.Fields {
		if field.Name == FieldSecureHash {
			continue
		}
		params[field.Name] = field.Value
	}
	return params
}

func (e *Envelope) SecureHash() string {
	value, ok := e.Get(FieldSecureHash)
	if !ok {
		return ""
	}
	hash, _ := value.(string)
	return hash
}

func (e *Envelope) IsSigned() bool {
	return e.SecureHash() != ""
}
