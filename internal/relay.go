package internal

import (
	"context"
	"fmt"
	"jiorelay/entity"
	"jiorelay/services"
)

// Relay validates, builds, signs and forwards one caller request.
// It keeps no request state; the builder and gateway are safe for concurrent use.
type Relay struct {
	builder *EnvelopeBuilder
	gateway services.Gateway
	logger  services.LogHandler
}

func NewRelay(builder *EnvelopeBuilder, gateway services.Gateway) *Relay {
	return &Relay{
		builder: builder,
		gateway: gateway,
		logger:  NewLogger("relay", false, nil),
	}
}

func (r *Relay) SetLogger(logger services.LogHandler) {
	r.logger = logger
}

func (r *Relay) Process(ctx context.Context, transactionType entity.TransactionType, body map[string]any) (*entity.GatewayResponse, error) {
	reqID := GetRequestID(ctx)

	envelope, err := r.builder.Build(transactionType, body)
	if err != nil {
		return nil, err
	}
	if envelope.MerchantTxnNo != "" {
		r.logger.Info(fmt.Sprintf("[%s] %s: merchant txn %s", reqID, transactionType, envelope.MerchantTxnNo))
	} else {
		r.logger.Info(fmt.Sprintf("[%s] %s: envelope signed", reqID, transactionType))
	}

	response, err := r.gateway.Send(ctx, envelope)
	if err != nil {
		return nil, err
	}
	r.logger.Debug(fmt.Sprintf("[%s] %s: gateway status %d", reqID, transactionType, response.StatusCode))
	return response, nil
}
