package polymarket

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

// ErrLiveTradingNotImplemented marks every unimplemented path on
// LiveMarketClient: this repository never signs or submits an on-chain
// order.
var ErrLiveTradingNotImplemented = errors.New("polymarket: live on-chain execution is not implemented")

// LiveMarketClient is the interface seam for real order signing and
// submission. Discovery, order books, and resolution delegate to the same
// Gamma/CLOB Client paper trading uses; PlaceOrder and Balance are the two
// methods that would need an ecdsa-signed typed order and an on-chain
// balance read, neither of which this repository implements.
type LiveMarketClient struct {
	market *Client
	rpc    *ethclient.Client
	signer common.Address
}

// NewLiveMarketClient wires the RPC client and wallet address a live
// deployment would use, without constructing any signing key material.
func NewLiveMarketClient(market *Client, rpc *ethclient.Client, signer common.Address) *LiveMarketClient {
	return &LiveMarketClient{market: market, rpc: rpc, signer: signer}
}

func (l *LiveMarketClient) DiscoverMarkets(ctx context.Context, filter ports.ScanFilter) ([]domain.Market, error) {
	return l.market.DiscoverMarkets(ctx, filter)
}

func (l *LiveMarketClient) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBookSnapshot, error) {
	return l.market.FetchOrderBooks(ctx, tokenIDs)
}

func (l *LiveMarketClient) FetchResolution(ctx context.Context, conditionID string) (ports.MarketResolution, bool, error) {
	return l.market.FetchResolution(ctx, conditionID)
}

// PlaceOrder would build a typed order via BuildOrderTypedData, sign it with
// the configured wallet's private key, and submit it to the CLOB's
// order-placement endpoint. Signing and submission are out of scope here.
func (l *LiveMarketClient) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (ports.PlacedOrder, error) {
	return ports.PlacedOrder{}, ErrLiveTradingNotImplemented
}

// Balance would read the signer's USDC balance on Polygon via rpc. Left
// unimplemented alongside PlaceOrder.
func (l *LiveMarketClient) Balance(ctx context.Context) (domain.Decimal, error) {
	return domain.Zero, ErrLiveTradingNotImplemented
}

// walletAddressFromPrivateKey exists only to document the expected wiring
// of a real private key into a signer address; it is never called from the
// unimplemented PlaceOrder path above.
func walletAddressFromPrivateKey(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

var _ ports.MarketClient = (*LiveMarketClient)(nil)
