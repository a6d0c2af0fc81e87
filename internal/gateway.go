package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"jiorelay/entity"
	"jiorelay/services"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type bodyEncoding int

const (
	jsonBody bodyEncoding = iota
	formBody
)

type endpoint struct {
	path     string
	encoding bodyEncoding
}

var endpoints = map[entity.TransactionType]endpoint{
	entity.Sale:   {path: "/v2/initiateSale", encoding: jsonBody},
	entity.Status: {path: "/command", encoding: formBody},
	entity.UpiQr:  {path: "/generateQR", encoding: formBody},
}

// EndpointUrl is the single place where processor urls are composed.
func EndpointUrl(baseUrl string, transactionType entity.TransactionType) (string, error) {
	ep, ok := endpoints[transactionType]
	if !ok {
		return "", fmt.Errorf("no endpoint for transaction type %q", transactionType)
	}
	return strings.TrimRight(baseUrl, "/") + ep.path, nil
}

// GatewayClient posts signed envelopes to the payment processor.
type GatewayClient struct {
	baseUrl    string
	timeout    time.Duration
	httpClient *http.Client
	logger     services.LogHandler
}

// NewGatewayClient creates a processor client with a bounded timeout and connection pooling.
func NewGatewayClient(baseUrl string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseUrl: baseUrl,
		timeout: timeout,
		logger:  NewLogger("gateway", false, nil),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (g *GatewayClient) SetLogger(logger services.LogHandler) {
	g.logger = logger
}

// Send performs exactly one outbound call and shapes the processor response.
func (g *GatewayClient) Send(ctx context.Context, envelope *entity.Envelope) (*entity.GatewayResponse, error) {
	if envelope == nil || !envelope.IsSigned() {
		return nil, errors.New("envelope is not signed")
	}
	ep, ok := endpoints[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("no endpoint for transaction type %q", envelope.Type)
	}
	requestUrl, _ := EndpointUrl(g.baseUrl, envelope.Type)

	var body []byte
	var contentType string
	var err error
	switch ep.encoding {
	case jsonBody:
		body, err = encodeJSON(envelope)
		contentType = "application/json"
	default:
		body, err = encodeForm(envelope)
		contentType = "application/x-www-form-urlencoded"
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", envelope.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestUrl, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	g.logger.Debug(fmt.Sprintf("%s request to %s: hash %s", envelope.Type, requestUrl, secret(envelope.SecureHash())))

	started := time.Now()
	response, err := g.httpClient.Do(req)
	observeUpstream(envelope.Type, time.Since(started))
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("request timeout or cancelled: %w", err)
		}
		transportErr := errUpstreamTransport(err)
		transportErr.MerchantTxnNo = envelope.MerchantTxnNo
		return nil, transportErr
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			g.logger.Error("close response body", err)
		}
	}(response.Body)

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		transportErr := errUpstreamTransport(fmt.Errorf("read response body: %w", err))
		transportErr.MerchantTxnNo = envelope.MerchantTxnNo
		return nil, transportErr
	}

	result, err := g.readResponse(envelope, response.StatusCode, responseBody)
	if err != nil {
		return nil, err
	}
	if reason, rejected := result.Rejection(); rejected {
		g.logger.Warn(fmt.Sprintf("%s rejected by gateway: %s", envelope.Type, reason))
	}
	return result, nil
}

func (g *GatewayClient) readResponse(envelope *entity.Envelope, status int, body []byte) (*entity.GatewayResponse, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil || payload == nil {
		if err == nil {
			err = errors.New("empty json payload")
		}
		g.logger.Warn(fmt.Sprintf("unrecognized %s response, status %d: %s", envelope.Type, status, string(body)))
		responseErr := errUpstreamResponse(http.StatusBadGateway, body, fmt.Errorf("parse response: %w", err))
		responseErr.MerchantTxnNo = envelope.MerchantTxnNo
		return nil, responseErr
	}

	// the caller needs the sale txn number for a later status query, whatever the outcome
	if envelope.Type == entity.Sale {
		payload[entity.FieldMerchantTxnNo] = envelope.MerchantTxnNo
	}

	if status < 200 || status > 299 {
		if envelope.Type == entity.Sale {
			merged, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encode %s response: %w", envelope.Type, err)
			}
			body = merged
		}
		return nil, errUpstreamResponse(status, body, fmt.Errorf("gateway status %d", status))
	}
	return &entity.GatewayResponse{StatusCode: status, Body: payload}, nil
}

// encodeJSON writes the envelope as a JSON object keeping field order.
func encodeJSON(envelope *entity.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range envelope.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := marshalValue(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := marshalValue(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(value any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// encodeForm writes the envelope as x-www-form-urlencoded keeping field order.
func encodeForm(envelope *entity.Envelope) ([]byte, error) {
	pairs := make([]string, 0, len(envelope.Fields))
	for _, field := range envelope.Fields {
		text, _, err := RenderValue(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		pairs = append(pairs, url.QueryEscape(field.Name)+"="+url.QueryEscape(text))
	}
	return []byte(strings.Join(pairs, "&")), nil
}

func secret(some string) string {
	if len(some) > 5 {
		return fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		return "?"
	}
	return "***"
}
