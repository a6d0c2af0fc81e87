package internal

import (
	"context"
	"encoding/json"
	"errors"
	"jiorelay/config"
	"jiorelay/entity"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls    int32
	last     *entity.Envelope
	response *entity.GatewayResponse
	err      error
}

func (g *fakeGateway) Send(_ context.Context, envelope *entity.Envelope) (*entity.GatewayResponse, error) {
	atomic.AddInt32(&g.calls, 1)
	g.last = envelope
	if g.err != nil {
		return nil, g.err
	}
	return g.response, nil
}

func newTestServer(t *testing.T, gateway *fakeGateway) http.Handler {
	server := NewServer(&config.Config{})
	server.SetRelay(NewRelay(newTestBuilder(t), gateway))
	return server.Handler()
}

func doRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestServer_MethodNotAllowed(t *testing.T) {
	gateway := &fakeGateway{}
	handler := newTestServer(t, gateway)

	for _, path := range []string{initiatePayment, checkPaymentStatus, initiateUpiApp} {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions} {
			t.Run(method+" "+path, func(t *testing.T) {
				w := doRequest(handler, method, path, "not json")
				require.Equal(t, http.StatusMethodNotAllowed, w.Code)
				require.Equal(t, "application/json", w.Header().Get("Content-Type"))
				require.Equal(t, map[string]any{"error": "Method not allowed"}, decodeBody(t, w))
			})
		}
	}
	require.EqualValues(t, 0, atomic.LoadInt32(&gateway.calls))
}

func TestServer_InvalidJSON(t *testing.T) {
	gateway := &fakeGateway{}
	handler := newTestServer(t, gateway)

	for _, body := range []string{"not json", "", `{"amount":`, `{"amount":1} {"amount":2}`} {
		w := doRequest(handler, http.MethodPost, initiatePayment, body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		require.Equal(t, map[string]any{"error": "Invalid JSON"}, decodeBody(t, w))
	}
	require.EqualValues(t, 0, atomic.LoadInt32(&gateway.calls))
}

func TestServer_MissingFields(t *testing.T) {
	gateway := &fakeGateway{}
	handler := newTestServer(t, gateway)

	w := doRequest(handler, http.MethodPost, initiatePayment, `{"customerEmailID":"buyer@example.com"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, map[string]any{"error": "Missing required fields"}, decodeBody(t, w))

	w = doRequest(handler, http.MethodPost, checkPaymentStatus, `{"merchantTxnNo":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, map[string]any{"error": "Missing merchantTxnNo"}, decodeBody(t, w))

	w = doRequest(handler, http.MethodPost, initiateUpiApp, `[1,2,3]`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, map[string]any{"error": "Missing required fields"}, decodeBody(t, w))

	require.EqualValues(t, 0, atomic.LoadInt32(&gateway.calls))
}

func TestServer_MalformedCallerField(t *testing.T) {
	gateway := &fakeGateway{}
	handler := newTestServer(t, gateway)

	w := doRequest(handler, http.MethodPost, initiatePayment, `{"amount":{"value":10},"customerEmailID":"buyer@example.com"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, map[string]any{"error": "Malformed parameter: amount"}, decodeBody(t, w))
	require.EqualValues(t, 0, atomic.LoadInt32(&gateway.calls))
}

func TestServer_SaleReturnsMerchantTxnNo(t *testing.T) {
	upstream, captured, calls := newUpstream(t, http.StatusOK, `{"responseCode":"R1000"}`)

	server := NewServer(&config.Config{})
	server.SetRelay(NewRelay(newTestBuilder(t), NewGatewayClient(upstream.URL, 5*time.Second)))

	w := doRequest(server.Handler(), http.MethodPost, initiatePayment, `{"amount":100.50,"customerEmailID":"buyer@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.EqualValues(t, 1, atomic.LoadInt32(calls))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(captured.body, &sent))

	body := decodeBody(t, w)
	require.Equal(t, "R1000", body["responseCode"])
	require.Equal(t, sent["merchantTxnNo"], body["merchantTxnNo"])
	require.Equal(t, "Txn1709618828123", body["merchantTxnNo"])
}

func TestServer_SaleNumberOutOfRange(t *testing.T) {
	gateway := &fakeGateway{}
	handler := newTestServer(t, gateway)

	w := doRequest(handler, http.MethodPost, initiatePayment, `{"amount":1e300000000,"customerEmailID":"a"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, map[string]any{"error": "Malformed parameter: amount"}, decodeBody(t, w))
	require.EqualValues(t, 0, atomic.LoadInt32(&gateway.calls))
}

func TestServer_SaleFailuresReturnMerchantTxnNo(t *testing.T) {
	saleBody := `{"amount":100,"customerEmailID":"buyer@example.com"}`

	t.Run("error status", func(t *testing.T) {
		upstream, captured, _ := newUpstream(t, http.StatusBadRequest, `{"responseCode":"R5001","responseMessage":"declined"}`)
		server := NewServer(&config.Config{})
		server.SetRelay(NewRelay(newTestBuilder(t), NewGatewayClient(upstream.URL, 5*time.Second)))

		w := doRequest(server.Handler(), http.MethodPost, initiatePayment, saleBody)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var sent map[string]any
		require.NoError(t, json.Unmarshal(captured.body, &sent))
		body := decodeBody(t, w)
		require.Equal(t, "R5001", body["responseCode"])
		require.Equal(t, sent["merchantTxnNo"], body["merchantTxnNo"])
	})

	t.Run("business rejection", func(t *testing.T) {
		upstream, _, _ := newUpstream(t, http.StatusOK, `{"responseCode":"R5002","error":"invalid secure hash"}`)
		server := NewServer(&config.Config{})
		server.SetRelay(NewRelay(newTestBuilder(t), NewGatewayClient(upstream.URL, 5*time.Second)))

		w := doRequest(server.Handler(), http.MethodPost, initiatePayment, saleBody)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		require.Equal(t, "invalid secure hash", body["error"])
		require.Equal(t, "Txn1709618828123", body["merchantTxnNo"])
	})

	t.Run("unreachable", func(t *testing.T) {
		upstream, _, _ := newUpstream(t, http.StatusOK, `{}`)
		baseUrl := upstream.URL
		upstream.Close()
		server := NewServer(&config.Config{})
		server.SetRelay(NewRelay(newTestBuilder(t), NewGatewayClient(baseUrl, 5*time.Second)))

		w := doRequest(server.Handler(), http.MethodPost, initiatePayment, saleBody)
		require.Equal(t, http.StatusBadGateway, w.Code)
		require.Equal(t, map[string]any{
			"error":         "Payment gateway unavailable",
			"merchantTxnNo": "Txn1709618828123",
		}, decodeBody(t, w))
	})
}

func TestServer_StatusPassesThrough(t *testing.T) {
	gateway := &fakeGateway{response: &entity.GatewayResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"txnStatus": "SUC", "txnAmount": json.Number("100.50")},
	}}
	handler := newTestServer(t, gateway)

	w := doRequest(handler, http.MethodPost, checkPaymentStatus, `{"merchantTxnNo":"Txn123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"txnStatus":"SUC","txnAmount":100.50}`, w.Body.String())

	require.NotNil(t, gateway.last)
	require.Equal(t, entity.Status, gateway.last.Type)
	require.Equal(t, "2ab0a3fd24d4e77bf41e6dfa87708e850be2f168ca716154ee411fb2660bba31", gateway.last.SecureHash())
}

func TestServer_UpstreamErrors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		handler := newTestServer(t, &fakeGateway{err: errUpstreamTransport(errors.New("connection refused"))})
		w := doRequest(handler, http.MethodPost, checkPaymentStatus, `{"merchantTxnNo":"Txn123"}`)
		require.Equal(t, http.StatusBadGateway, w.Code)
		require.Equal(t, map[string]any{"error": "Payment gateway unavailable"}, decodeBody(t, w))
	})

	t.Run("json rejection", func(t *testing.T) {
		body := []byte(`{"responseCode":"R5000","error":"invalid secure hash"}`)
		handler := newTestServer(t, &fakeGateway{err: errUpstreamResponse(http.StatusUnauthorized, body, errors.New("gateway status 401"))})
		w := doRequest(handler, http.MethodPost, checkPaymentStatus, `{"merchantTxnNo":"Txn123"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.JSONEq(t, string(body), w.Body.String())
	})

	t.Run("non json", func(t *testing.T) {
		handler := newTestServer(t, &fakeGateway{err: errUpstreamResponse(http.StatusBadGateway, []byte("<html>"), errors.New("parse"))})
		w := doRequest(handler, http.MethodPost, checkPaymentStatus, `{"merchantTxnNo":"Txn123"}`)
		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, map[string]any{"error": "Invalid payment gateway response", "response": "<html>"}, decodeBody(t, w))
	})

	t.Run("internal", func(t *testing.T) {
		handler := newTestServer(t, &fakeGateway{err: errors.New("boom")})
		w := doRequest(handler, http.MethodPost, checkPaymentStatus, `{"merchantTxnNo":"Txn123"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestServer_Health(t *testing.T) {
	w := doRequest(newTestServer(t, &fakeGateway{}), http.MethodGet, healthCheck, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"status": "ok"}, decodeBody(t, w))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background())
	id := GetRequestID(ctx)
	require.Len(t, id, 36)
	require.Equal(t, id, GetRequestID(WithRequestID(ctx)))
	require.Empty(t, GetRequestID(context.Background()))
}
