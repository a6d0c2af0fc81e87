package services

import (
	"context"
	"jiorelay/entity"
)

// Gateway sends a signed envelope to the processor. Exactly one outbound call per Send.
type Gateway interface {
	Send(ctx context.Context, envelope *entity.Envelope) (*entity.GatewayResponse, error)
}

// Relay turns a decoded caller body into a processor response.
type Relay interface {
	Process(ctx context.Context, transactionType entity.TransactionType, body map[string]any) (*entity.GatewayResponse, error)
}
