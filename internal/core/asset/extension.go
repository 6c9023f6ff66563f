package asset

import "fmt"

// ExtensionFlag tags one feature an asset carries. The set is closed: the
// admission policy matches it exhaustively, so introducing a new flag forces
// a compile-time decision instead of a silent default-allow.
type ExtensionFlag uint16

const (
	// ExtTransferFee marks an asset whose transfers skim a fee in flight.
	ExtTransferFee ExtensionFlag = iota + 1

	// ExtInterestBearing marks an asset whose displayed amount accrues
	// interest; base units are unaffected.
	ExtInterestBearing

	// ExtMetadata and ExtMetadataPointer attach descriptive metadata.
	ExtMetadata
	ExtMetadataPointer

	// ExtGroup and ExtGroupPointer attach collection grouping.
	ExtGroup
	ExtGroupPointer

	// ExtImmutableOwner forbids reassigning token account ownership.
	ExtImmutableOwner

	// ExtCPIGuard restricts cross-program invocation patterns.
	ExtCPIGuard

	// ExtConfidentialTransfer allows optional confidential transfers; the
	// non-confidential path remains available.
	ExtConfidentialTransfer

	// ExtNonTransferable forbids transfers outright.
	ExtNonTransferable

	// ExtTransferHook redirects transfers through arbitrary external code.
	ExtTransferHook

	// ExtPermanentDelegate grants a third party unconditional transfer and
	// burn rights over every holder's balance.
	ExtPermanentDelegate

	// ExtMintCloseAuthority allows the asset itself to be closed.
	ExtMintCloseAuthority

	// ExtDefaultAccountState lets new accounts start frozen.
	ExtDefaultAccountState
)

// String names the flag for error messages and logs.
func (f ExtensionFlag) String() string {
	switch f {
	case ExtTransferFee:
		return "transfer-fee"
	case ExtInterestBearing:
		return "interest-bearing"
	case ExtMetadata:
		return "metadata"
	case ExtMetadataPointer:
		return "metadata-pointer"
	case ExtGroup:
		return "group"
	case ExtGroupPointer:
		return "group-pointer"
	case ExtImmutableOwner:
		return "immutable-owner"
	case ExtCPIGuard:
		return "cpi-guard"
	case ExtConfidentialTransfer:
		return "confidential-transfer"
	case ExtNonTransferable:
		return "non-transferable"
	case ExtTransferHook:
		return "transfer-hook"
	case ExtPermanentDelegate:
		return "permanent-delegate"
	case ExtMintCloseAuthority:
		return "mint-close-authority"
	case ExtDefaultAccountState:
		return "default-account-state"
	default:
		return fmt.Sprintf("extension(%d)", uint16(f))
	}
}

var extensionNames = map[string]ExtensionFlag{
	"transfer-fee":          ExtTransferFee,
	"interest-bearing":      ExtInterestBearing,
	"metadata":              ExtMetadata,
	"metadata-pointer":      ExtMetadataPointer,
	"group":                 ExtGroup,
	"group-pointer":         ExtGroupPointer,
	"immutable-owner":       ExtImmutableOwner,
	"cpi-guard":             ExtCPIGuard,
	"confidential-transfer": ExtConfidentialTransfer,
	"non-transferable":      ExtNonTransferable,
	"transfer-hook":         ExtTransferHook,
	"permanent-delegate":    ExtPermanentDelegate,
	"mint-close-authority":  ExtMintCloseAuthority,
	"default-account-state": ExtDefaultAccountState,
}

// ParseExtensionFlag resolves a flag by its String name.
func ParseExtensionFlag(name string) (ExtensionFlag, error) {
	if f, ok := extensionNames[name]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("asset: unknown extension %q", name)
}
