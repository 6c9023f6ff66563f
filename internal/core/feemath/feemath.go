// Package feemath holds the pool's pure arithmetic: trading-fee deduction,
// transfer-fee reconciliation, the constant-product quote, and LP share
// computation. Everything is exact integer math: intermediates that can
// exceed 64 bits go through uint256, results floor toward zero.
//
// Two independent fee layers live here and must never be conflated. The
// trading fee is charged by the pool on swap input and retained in the
// input-side reserve. The transfer fee is applied by the asset's own
// transfer mechanism outside engine control; it only ever corrects "amount
// actually moved".
package feemath

import (
	"errors"
	"math"

	"github.com/holiman/uint256"

	"github.com/poollabs/goamm/internal/core/asset"
)

// BasisPointDenominator scales all basis-point fees.
const BasisPointDenominator = 10_000

// MaxTradeFeeBasisPoints caps the pool trading fee at 10%.
const MaxTradeFeeBasisPoints uint16 = 1_000

var (
	ErrFeeOverflow = errors.New("feemath: transfer-fee-included amount overflows")
)

// mulDiv returns floor(a*b/den), saturating to MaxUint64 when the quotient
// does not fit in 64 bits. den must be nonzero; callers guard it.
func mulDiv(a, b, den uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	product.Div(product, uint256.NewInt(den))
	if !product.IsUint64() {
		return math.MaxUint64
	}
	return product.Uint64()
}

// TradingFee returns the pool fee withheld from a swap input:
// floor(amountIn * bps / 10000).
func TradingFee(amountIn uint64, bps uint16) uint64 {
	return mulDiv(amountIn, uint64(bps), BasisPointDenominator)
}

// TransferFee returns the fee an asset's transfer mechanism skims from a
// transfer of amount: min(floor(amount * bps / 10000), MaximumFee).
// A nil config means the asset is plain and nothing is skimmed.
func TransferFee(cfg *asset.TransferFeeConfig, amount uint64) uint64 {
	if cfg == nil {
		return 0
	}
	fee := mulDiv(amount, uint64(cfg.BasisPoints), BasisPointDenominator)
	if fee > cfg.MaximumFee {
		fee = cfg.MaximumFee
	}
	return fee
}

// TransferFeeExcluded converts a requested transfer amount into the amount
// the destination actually receives, plus the fee withheld.
func TransferFeeExcluded(cfg *asset.TransferFeeConfig, amount uint64) (delivered, fee uint64) {
	fee = TransferFee(cfg, amount)
	return amount - fee, fee
}

// TransferFeeIncluded inverts TransferFeeExcluded: given the amount the
// destination must receive, it returns the gross amount to request and the
// fee that will be withheld. When the fee rate is the full 10000 bps the
// proportional inverse is undefined, so the maximum fee is charged instead.
func TransferFeeIncluded(cfg *asset.TransferFeeConfig, delivered uint64) (gross, fee uint64, err error) {
	if cfg == nil || delivered == 0 {
		return delivered, 0, nil
	}

	if cfg.BasisPoints >= asset.MaxTransferFeeBasisPoints {
		// Full-rate edge case: the proportional inverse is undefined, the
		// maximum fee is charged instead.
		fee = cfg.MaximumFee
	} else {
		// gross = ceil(delivered * 10000 / (10000 - bps)).
		num := new(uint256.Int).Mul(uint256.NewInt(delivered), uint256.NewInt(BasisPointDenominator))
		den := uint256.NewInt(BasisPointDenominator - uint64(cfg.BasisPoints))
		rem := new(uint256.Int)
		quo := new(uint256.Int)
		quo.DivMod(num, den, rem)
		if !rem.IsZero() {
			quo.AddUint64(quo, 1)
		}
		if !quo.IsUint64() {
			return 0, 0, ErrFeeOverflow
		}
		// Re-derive the fee the forward calculation will actually charge on
		// this gross amount; when it hits the cap the gross shrinks to
		// delivered + MaximumFee.
		fee = TransferFee(cfg, quo.Uint64())
	}

	gross = delivered + fee
	if gross < delivered {
		return 0, 0, ErrFeeOverflow
	}

	// The destination must never be short-changed by rounding.
	if gross-TransferFee(cfg, gross) < delivered {
		return 0, 0, ErrFeeOverflow
	}
	return gross, fee, nil
}

// ConstantProductOut quotes a swap against the x*y=k curve: the output for
// adding netIn to reserveIn is floor(reserveOut * netIn / (reserveIn + netIn)).
func ConstantProductOut(reserveIn, reserveOut, netIn uint64) uint64 {
	if netIn == 0 {
		return 0
	}
	num := new(uint256.Int).Mul(uint256.NewInt(reserveOut), uint256.NewInt(netIn))
	den := new(uint256.Int).Add(uint256.NewInt(reserveIn), uint256.NewInt(netIn))
	num.Div(num, den)
	return num.Uint64()
}

// InitialLPShares seeds a pool's LP supply with the geometric mean of the
// first deposit: floor(sqrt(x * y)). The geometric mean keeps the initial
// share price independent of which asset dominates the deposit.
func InitialLPShares(receivedX, receivedY uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(receivedX), uint256.NewInt(receivedY))
	product.Sqrt(product)
	return product.Uint64()
}

// ShareOfSupply returns floor(amount * supply / reserve): the LP shares one
// deposit leg earns at the current reserve ratio. reserve must be nonzero.
// A leg large enough against a tiny reserve can push the quotient past 64
// bits; the result saturates to MaxUint64 and the other leg bounds the mint.
func ShareOfSupply(amount, supply, reserve uint64) uint64 {
	return mulDiv(amount, supply, reserve)
}

// ProportionalOut returns floor(reserve * burn / supply): the strict
// proportional redemption for burning LP shares. supply must be nonzero.
func ProportionalOut(reserve, burn, supply uint64) uint64 {
	return mulDiv(reserve, burn, supply)
}

// ProductIncreased reports whether the reserve product after an update is at
// least the product before it, computed at full width.
func ProductIncreased(beforeIn, beforeOut, afterIn, afterOut uint64) bool {
	before := new(uint256.Int).Mul(uint256.NewInt(beforeIn), uint256.NewInt(beforeOut))
	after := new(uint256.Int).Mul(uint256.NewInt(afterIn), uint256.NewInt(afterOut))
	return after.Cmp(before) >= 0
}
