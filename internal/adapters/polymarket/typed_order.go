package polymarket

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	orderbuilder "github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

// polygonChainID is Polymarket's deployment chain (Polygon mainnet).
var polygonChainID = big.NewInt(137)

// ctfExchangeAddress is Polymarket's CTF Exchange contract on Polygon.
var ctfExchangeAddress = common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")

// BuildOrderTypedData constructs the EIP-712 order struct go-order-utils
// would hand to a signer, without signing it. Neither PaperClient nor
// LiveMarketClient calls it; the live client's ecdsa signing step is an
// unimplemented seam (see LiveMarketClient).
func BuildOrderTypedData(req ports.PlaceOrderRequest, maker common.Address, nonce *big.Int) (*model.OrderData, error) {
	makerAmount, takerAmount := orderAmounts(req)

	b := orderbuilder.NewExchangeOrderBuilderImpl(polygonChainID, ctfExchangeAddress, nil)
	order := &model.OrderData{
		Maker:         maker.Hex(),
		Signer:        maker.Hex(),
		Taker:         common.Address{}.Hex(),
		TokenId:       req.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Side:          sideToBuySell(req.Side),
		FeeRateBps:    "0",
		Nonce:         nonce.String(),
		SignatureType: 0, // EOA
	}
	return b.BuildOrder(order)
}

// orderAmounts converts a share-denominated request into the maker/taker
// base-unit amounts the CTF Exchange expects (6-decimal USDC, 6-decimal
// conditional token shares).
func orderAmounts(req ports.PlaceOrderRequest) (makerAmount, takerAmount *big.Int) {
	usd := req.Price.Mul(req.Shares)
	return toBaseUnits(usd), toBaseUnits(req.Shares)
}

func toBaseUnits(d domain.Decimal) *big.Int {
	scaled := d.Mul(domain.NewDecimal(1_000_000))
	return scaled.BigInt()
}

func sideToBuySell(side domain.Side) string {
	if side == domain.SideYes {
		return "BUY"
	}
	return "BUY" // both sides are a BUY of the respective outcome token
}
