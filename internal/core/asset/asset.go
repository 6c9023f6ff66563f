// Package asset describes the assets a pool may hold: their identity,
// decimal precision, transfer-fee behavior, and the extension features
// attached to them. It also houses the admission policy deciding which
// extension sets are safe for pool custody.
package asset

import (
	"errors"
	"fmt"

	"github.com/poollabs/goamm/internal/core/ident"
)

// MaxTransferFeeBasisPoints is the exclusive upper bound on an asset-level
// transfer fee. 10000 bps = 100%; a full 100% fee is representable only
// through the MaximumFee cap.
const MaxTransferFeeBasisPoints uint16 = 10000

// TransferFeeConfig describes the in-flight fee an asset's own transfer
// mechanism deducts. The amount requested to move and the amount the
// destination receives differ by this fee.
type TransferFeeConfig struct {
	// BasisPoints of the transferred amount withheld, in [0, 10000).
	BasisPoints uint16

	// MaximumFee caps the withheld amount per transfer, in absolute units.
	MaximumFee uint64
}

// Descriptor describes one side of a pool pair.
type Descriptor struct {
	// Identity is the opaque unique handle for the asset.
	Identity ident.Identity

	// Decimals is the display scale. The engine never interprets it; all
	// amounts are integers in the asset's own base units.
	Decimals uint8

	// TransferFee is present exactly when Extensions contains ExtTransferFee.
	TransferFee *TransferFeeConfig

	// Extensions are the feature tags attached to the asset.
	Extensions []ExtensionFlag
}

var (
	ErrMissingIdentity       = errors.New("asset: descriptor has no identity")
	ErrTransferFeeMismatch   = errors.New("asset: transfer-fee config and extension flag must be present together")
	ErrTransferFeeOutOfRange = errors.New("asset: transfer fee basis points out of range")
)

// Validate checks the descriptor's internal consistency: identity present,
// transfer-fee config if and only if the transfer-fee extension is flagged,
// and fee basis points within range.
func (d *Descriptor) Validate() error {
	if d.Identity.IsZero() {
		return ErrMissingIdentity
	}
	if d.HasExtension(ExtTransferFee) != (d.TransferFee != nil) {
		return ErrTransferFeeMismatch
	}
	if d.TransferFee != nil && d.TransferFee.BasisPoints >= MaxTransferFeeBasisPoints {
		return fmt.Errorf("%w: %d", ErrTransferFeeOutOfRange, d.TransferFee.BasisPoints)
	}
	return nil
}

// HasExtension reports whether the descriptor carries the given flag.
func (d *Descriptor) HasExtension(flag ExtensionFlag) bool {
	for _, f := range d.Extensions {
		if f == flag {
			return true
		}
	}
	return false
}

// IsTransferFeeAsset reports whether transfers of this asset skim a fee.
func (d *Descriptor) IsTransferFeeAsset() bool {
	return d.TransferFee != nil
}
