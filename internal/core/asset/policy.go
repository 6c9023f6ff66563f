package asset

import (
	"fmt"

	"github.com/poollabs/goamm/internal/core/ident"
)

// RejectedError reports why an asset failed admission.
type RejectedError struct {
	Asset ident.Identity
	Flag  ExtensionFlag
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("asset: %s rejected: extension %s not allowed in pools", e.Asset, e.Flag)
}

// Admit decides whether an asset may enter a pool at all. It is pure and
// deterministic: the decision depends only on the descriptor's flags.
//
// Rejected flags are those under which the pool could lose control of its
// vault balances: assets that cannot move, assets whose transfers run
// arbitrary hook code, assets a delegate can drain, assets that can be
// closed out from under the pool, and assets whose accounts can start
// frozen. Everything else on the closed flag set is admitted. Unknown flag
// values are rejected; a new extension must be classified here before any
// pool may reference an asset carrying it.
func Admit(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	for _, flag := range d.Extensions {
		switch flag {
		case ExtTransferFee,
			ExtInterestBearing,
			ExtMetadata,
			ExtMetadataPointer,
			ExtGroup,
			ExtGroupPointer,
			ExtImmutableOwner,
			ExtCPIGuard,
			ExtConfidentialTransfer:
			// Safe for custody: none of these threaten vault solvency or
			// transfer atomicity.
		case ExtNonTransferable,
			ExtTransferHook,
			ExtPermanentDelegate,
			ExtMintCloseAuthority,
			ExtDefaultAccountState:
			return &RejectedError{Asset: d.Identity, Flag: flag}
		default:
			return &RejectedError{Asset: d.Identity, Flag: flag}
		}
	}
	return nil
}
