package order

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/hyperterm/internal/crypto"
	"github.com/alanyoungcy/hyperterm/internal/domain"
	"github.com/alanyoungcy/hyperterm/internal/platform/hyperliquid"
)

// Executor submits built orders through the exchange write path and
// classifies the outcome. It holds endpoints only; the signer and the write
// client are constructed fresh inside each Submit call so the credential
// never outlives the submission.
type Executor struct {
	apiURL  string
	mainnet bool
	logger  *slog.Logger
}

// NewExecutor creates an executor targeting the given API root.
func NewExecutor(apiURL string, mainnet bool, logger *slog.Logger) *Executor {
	return &Executor{
		apiURL:  apiURL,
		mainnet: mainnet,
		logger:  logger.With(slog.String("component", "order_executor")),
	}
}

// Submit signs and sends a single order with the supplied private key and
// classifies the response. Exactly one attempt is made; the caller decides
// whether to resubmit. A rejected outcome means the exchange said no and no
// order exists; a transport-error outcome means the submission may or may
// not have landed and the caller should verify via the account poller.
//
// The credential is used for this call only. It is never logged, cached, or
// included in any returned message.
func (e *Executor) Submit(ctx context.Context, req domain.OrderRequest, privateKeyHex string) domain.OrderResult {
	signer, err := crypto.NewSigner(privateKeyHex)
	if err != nil {
		// NewSigner's message describes the format problem without echoing
		// key material.
		return domain.TransportError(err.Error())
	}

	client := hyperliquid.NewExchangeClient(e.apiURL, signer, e.mainnet)

	ack, err := client.PlaceOrder(ctx, req)
	if err != nil {
		e.logger.Warn("order submission failed",
			slog.Int("asset", req.AssetIndex),
			slog.Bool("is_buy", req.IsBuy),
			slog.String("error", err.Error()),
		)
		return domain.TransportError(err.Error())
	}

	result := classify(ack)
	e.logger.Info("order submitted",
		slog.Int("asset", req.AssetIndex),
		slog.Bool("is_buy", req.IsBuy),
		slog.String("px", req.Price),
		slog.String("sz", req.Size),
		slog.String("outcome", string(result.Outcome)),
	)
	return result
}

// classify maps the typed exchange acknowledgement onto the result taxonomy.
func classify(ack hyperliquid.OrderAck) domain.OrderResult {
	if ack.Status != "ok" {
		return domain.TransportError(string(ack.Raw))
	}

	switch {
	case ack.Order.Resting != nil:
		return domain.Resting(ack.Order.Resting.Oid)
	case ack.Order.Filled != nil:
		return domain.Filled(ack.Order.Filled.Oid, ack.Order.Filled.AvgPx)
	case ack.Order.Error != "":
		return domain.Rejected(ack.Order.Error)
	default:
		return domain.TransportError("unrecognized order status: " + string(ack.Raw))
	}
}
