package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"jiorelay/config"
	"jiorelay/entity"
	"jiorelay/services"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const (
	initiatePayment    = "/initiate-payment"
	checkPaymentStatus = "/check-payment-status"
	initiateUpiApp     = "/initiate-upi-app"
	healthCheck        = "/health"

	maxBodyBytes = 1 << 20
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	relay      services.Relay
	logger     services.LogHandler
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf:   conf,
		logger: NewLogger("server", false, nil),
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.POST(initiatePayment, s.handle(entity.Sale))
	router.POST(checkPaymentStatus, s.handle(entity.Status))
	router.POST(initiateUpiApp, s.handle(entity.UpiQr))
	router.GET(healthCheck, s.health)

	// every non-POST verb on the operations is a 405, OPTIONS included
	router.HandleMethodNotAllowed = true
	router.HandleOPTIONS = false
	router.MethodNotAllowed = http.HandlerFunc(s.methodNotAllowed)
}

func (s *Server) SetRelay(relay services.Relay) {
	s.relay = relay
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if s.relay == nil {
		return fmt.Errorf("relay service not set")
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handle(transactionType entity.TransactionType) httprouter.Handle {
	operation := transactionType.Operation()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := WithRequestID(r.Context())
		reqID := GetRequestID(ctx)

		body, err := readBody(w, r)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("[%s] %s: %v", reqID, operation, err))
			s.writeError(w, operation, err)
			return
		}

		response, err := s.relay.Process(ctx, transactionType, body)
		if err != nil {
			var relayErr *RelayError
			if errors.As(err, &relayErr) && relayErr.Status < http.StatusInternalServerError {
				s.logger.Warn(fmt.Sprintf("[%s] %s: %v", reqID, operation, err))
			} else {
				s.logger.Error(fmt.Sprintf("[%s] %s", reqID, operation), err)
			}
			s.writeError(w, operation, err)
			return
		}

		countRequest(operation, "ok")
		writeJSON(w, http.StatusOK, response.Body)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn(fmt.Sprintf("%s %s: method not allowed", r.Method, r.URL.Path))
	s.writeError(w, operationOf(r.URL.Path), errMethodNotAllowed())
}

// readBody decodes the caller JSON. A valid JSON value that is not an object
// decodes to an empty body and fails field validation instead.
func readBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errInvalidRequestBody(fmt.Errorf("read request body: %w", err))
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var value any
	if err = decoder.Decode(&value); err != nil {
		return nil, errInvalidRequestBody(err)
	}
	if decoder.More() {
		return nil, errInvalidRequestBody(errors.New("trailing data after json value"))
	}
	body, ok := value.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return body, nil
}

func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		countRequest(operation, "InternalError")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	countRequest(operation, string(relayErr.Kind))

	if relayErr.Kind == UpstreamResponseError && json.Valid(relayErr.Body) {
		writeRaw(w, relayErr.Status, relayErr.Body)
		return
	}
	payload := map[string]string{"error": relayErr.Message}
	if relayErr.Kind == UpstreamResponseError && len(relayErr.Body) > 0 {
		payload["response"] = string(relayErr.Body)
	}
	if relayErr.MerchantTxnNo != "" {
		payload[entity.FieldMerchantTxnNo] = relayErr.MerchantTxnNo
	}
	writeJSON(w, relayErr.Status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"Internal server error"}`)
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func operationOf(path string) string {
	switch path {
	case initiatePayment:
		return entity.Sale.Operation()
	case checkPaymentStatus:
		return entity.Status.Operation()
	case initiateUpiApp:
		return entity.UpiQr.Operation()
	default:
		return ""
	}
}
