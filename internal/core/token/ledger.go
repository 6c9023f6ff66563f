// Package token is the asset-transfer subsystem the pool engine drives. It
// tracks asset registrations and per-account balances, applies asset-level
// transfer fees in flight, and reports the amount actually delivered to the
// destination, which is the ground truth the engine uses for all reserve math.
//
// The ledger itself never participates in pool accounting: it moves
// balances, skims the asset's own fee when one is configured, and adjusts
// LP share supply on mint/burn. Atomicity across the several moves of one
// pool operation is provided by Stage.
package token

import (
	"errors"
	"fmt"

	"github.com/poollabs/goamm/internal/core/asset"
	"github.com/poollabs/goamm/internal/core/feemath"
	"github.com/poollabs/goamm/internal/core/ident"
)

var (
	ErrAssetExists       = errors.New("token: asset already registered")
	ErrAssetUnknown      = errors.New("token: asset not registered")
	ErrAccountExists     = errors.New("token: account already exists")
	ErrAccountUnknown    = errors.New("token: account not found")
	ErrNotAuthorized     = errors.New("token: authority does not own source account")
	ErrInsufficientFunds = errors.New("token: insufficient balance")
	ErrBalanceOverflow   = errors.New("token: balance overflow")
	ErrSupplyUnderflow   = errors.New("token: burn exceeds supply")
)

// accountKey addresses one holder's balance of one asset.
type accountKey struct {
	Asset  ident.Identity
	Holder ident.Identity
}

// Account is one holder's position in one asset.
type Account struct {
	Asset   ident.Identity
	Holder  ident.Identity
	Owner   ident.Identity // authority allowed to move funds out
	Balance uint64
}

// assetEntry is a registered asset plus its outstanding supply.
type assetEntry struct {
	descriptor asset.Descriptor
	supply     uint64
}

// Ledger holds asset registrations and balances. It is not safe for
// concurrent use; the execution substrate serializes operations (one pool
// operation at a time), so the ledger carries no locks.
type Ledger struct {
	assets   map[ident.Identity]*assetEntry
	accounts map[accountKey]*Account
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		assets:   make(map[ident.Identity]*assetEntry),
		accounts: make(map[accountKey]*Account),
	}
}

// RegisterAsset records an asset descriptor. Registration is required before
// any account of that asset can exist.
func (l *Ledger) RegisterAsset(d asset.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := l.assets[d.Identity]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, d.Identity)
	}
	l.assets[d.Identity] = &assetEntry{descriptor: d}
	return nil
}

// Asset returns the descriptor for a registered asset.
func (l *Ledger) Asset(id ident.Identity) (asset.Descriptor, error) {
	entry, ok := l.assets[id]
	if !ok {
		return asset.Descriptor{}, fmt.Errorf("%w: %s", ErrAssetUnknown, id)
	}
	return entry.descriptor, nil
}

// Supply returns the outstanding supply of a registered asset.
func (l *Ledger) Supply(id ident.Identity) (uint64, error) {
	entry, ok := l.assets[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAssetUnknown, id)
	}
	return entry.supply, nil
}

// CreateAccount opens a zero-balance account for holder, movable by owner.
func (l *Ledger) CreateAccount(assetID, holder, owner ident.Identity) error {
	if _, ok := l.assets[assetID]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetUnknown, assetID)
	}
	key := accountKey{Asset: assetID, Holder: holder}
	if _, ok := l.accounts[key]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, holder)
	}
	l.accounts[key] = &Account{Asset: assetID, Holder: holder, Owner: owner}
	return nil
}

// EnsureAccount opens the account if it does not exist yet. An existing
// account is left untouched, whatever its owner.
func (l *Ledger) EnsureAccount(assetID, holder, owner ident.Identity) error {
	if _, ok := l.accounts[accountKey{Asset: assetID, Holder: holder}]; ok {
		return nil
	}
	return l.CreateAccount(assetID, holder, owner)
}

// Balance returns holder's balance of the asset; missing accounts read zero.
func (l *Ledger) Balance(assetID, holder ident.Identity) uint64 {
	if acct, ok := l.accounts[accountKey{Asset: assetID, Holder: holder}]; ok {
		return acct.Balance
	}
	return 0
}

// Mint credits newly issued units to an existing account and grows supply.
// Used to fund accounts with externally issued assets; LP shares go through
// MintLPShares on a stage instead.
func (l *Ledger) Mint(assetID, holder ident.Identity, amount uint64) error {
	entry, ok := l.assets[assetID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetUnknown, assetID)
	}
	acct, ok := l.accounts[accountKey{Asset: assetID, Holder: holder}]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountUnknown, holder)
	}
	if acct.Balance+amount < acct.Balance || entry.supply+amount < entry.supply {
		return ErrBalanceOverflow
	}
	acct.Balance += amount
	entry.supply += amount
	return nil
}

// AssetRecord pairs a descriptor with its outstanding supply for export.
type AssetRecord struct {
	Descriptor asset.Descriptor
	Supply     uint64
}

// Assets returns every registered asset with its supply, in no particular
// order.
func (l *Ledger) Assets() []AssetRecord {
	out := make([]AssetRecord, 0, len(l.assets))
	for _, entry := range l.assets {
		out = append(out, AssetRecord{Descriptor: entry.descriptor, Supply: entry.supply})
	}
	return out
}

// Accounts returns a copy of every account, in no particular order.
func (l *Ledger) Accounts() []Account {
	out := make([]Account, 0, len(l.accounts))
	for _, acct := range l.accounts {
		out = append(out, *acct)
	}
	return out
}

// RestoreAsset reinstates a persisted asset together with its supply.
func (l *Ledger) RestoreAsset(d asset.Descriptor, supply uint64) error {
	if err := l.RegisterAsset(d); err != nil {
		return err
	}
	l.assets[d.Identity].supply = supply
	return nil
}

// RestoreAccount reinstates a persisted account with its balance.
func (l *Ledger) RestoreAccount(a Account) error {
	if _, ok := l.assets[a.Asset]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetUnknown, a.Asset)
	}
	key := accountKey{Asset: a.Asset, Holder: a.Holder}
	if _, ok := l.accounts[key]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.Holder)
	}
	copied := a
	l.accounts[key] = &copied
	return nil
}

// transferFeeConfig resolves the fee config for an asset, nil when plain.
func (l *Ledger) transferFeeConfig(assetID ident.Identity) (*asset.TransferFeeConfig, error) {
	entry, ok := l.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetUnknown, assetID)
	}
	return entry.descriptor.TransferFee, nil
}

// Begin opens a stage over the ledger. All moves performed through the
// stage are buffered and become visible only on Commit.
func (l *Ledger) Begin() *Stage {
	return &Stage{
		ledger:   l,
		balances: make(map[accountKey]uint64),
		supplies: make(map[ident.Identity]uint64),
		created:  make(map[accountKey]*Account),
	}
}

// Stage buffers the balance, supply, and account-creation effects of one
// pool operation. Reads see staged values layered over the underlying
// ledger; Commit applies every buffered effect at once, and dropping the
// stage applies nothing.
type Stage struct {
	ledger   *Ledger
	balances map[accountKey]uint64
	supplies map[ident.Identity]uint64
	created  map[accountKey]*Account
	done     bool
}

// account resolves an account through the staged-creation layer.
func (s *Stage) account(key accountKey) (*Account, bool) {
	if acct, ok := s.created[key]; ok {
		return acct, true
	}
	acct, ok := s.ledger.accounts[key]
	return acct, ok
}

// EnsureAccount opens the account on commit when it does not exist yet. An
// existing account, staged or committed, is left untouched, whatever its
// owner.
func (s *Stage) EnsureAccount(assetID, holder, owner ident.Identity) error {
	if _, ok := s.ledger.assets[assetID]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetUnknown, assetID)
	}
	key := accountKey{Asset: assetID, Holder: holder}
	if _, ok := s.account(key); ok {
		return nil
	}
	s.created[key] = &Account{Asset: assetID, Holder: holder, Owner: owner}
	return nil
}

func (s *Stage) balance(key accountKey) uint64 {
	if v, ok := s.balances[key]; ok {
		return v
	}
	return s.ledger.Balance(key.Asset, key.Holder)
}

func (s *Stage) supply(assetID ident.Identity) uint64 {
	if v, ok := s.supplies[assetID]; ok {
		return v
	}
	entry := s.ledger.assets[assetID]
	if entry == nil {
		return 0
	}
	return entry.supply
}

// Balance reads a staged balance.
func (s *Stage) Balance(assetID, holder ident.Identity) uint64 {
	return s.balance(accountKey{Asset: assetID, Holder: holder})
}

// Transfer moves amount of an asset from one account to another, authorized
// by the source account's owner. For transfer-fee assets the asset skims its
// fee in flight: the source is debited the full amount, the destination is
// credited amount minus fee, and the skimmed units leave circulation. The
// returned value is the amount actually delivered to the destination; the
// caller must treat it, not the requested amount, as what arrived.
func (s *Stage) Transfer(assetID, from, to ident.Identity, amount uint64, authority ident.Identity) (uint64, error) {
	feeCfg, err := s.ledger.transferFeeConfig(assetID)
	if err != nil {
		return 0, err
	}

	srcKey := accountKey{Asset: assetID, Holder: from}
	dstKey := accountKey{Asset: assetID, Holder: to}

	srcAcct, ok := s.account(srcKey)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAccountUnknown, from)
	}
	if !srcAcct.Owner.Equal(authority) {
		return 0, ErrNotAuthorized
	}
	if _, ok := s.account(dstKey); !ok {
		return 0, fmt.Errorf("%w: %s", ErrAccountUnknown, to)
	}

	srcBal := s.balance(srcKey)
	if srcBal < amount {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, srcBal, amount)
	}

	delivered, fee := feemath.TransferFeeExcluded(feeCfg, amount)

	dstBal := s.balance(dstKey)
	if dstBal+delivered < dstBal {
		return 0, ErrBalanceOverflow
	}

	s.balances[srcKey] = srcBal - amount
	s.balances[dstKey] = dstBal + delivered

	// Skimmed units leave circulation.
	if fee > 0 {
		s.supplies[assetID] = s.supply(assetID) - fee
	}

	return delivered, nil
}

// MintLPShares issues LP shares to an account, growing supply. LP assets are
// plain by construction, so the minted amount is the delivered amount.
func (s *Stage) MintLPShares(lpAsset, to ident.Identity, amount uint64) error {
	if _, ok := s.ledger.assets[lpAsset]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetUnknown, lpAsset)
	}
	key := accountKey{Asset: lpAsset, Holder: to}
	if _, ok := s.account(key); !ok {
		return fmt.Errorf("%w: %s", ErrAccountUnknown, to)
	}
	bal := s.balance(key)
	sup := s.supply(lpAsset)
	if bal+amount < bal || sup+amount < sup {
		return ErrBalanceOverflow
	}
	s.balances[key] = bal + amount
	s.supplies[lpAsset] = sup + amount
	return nil
}

// BurnLPShares destroys LP shares held by an account, shrinking supply.
func (s *Stage) BurnLPShares(lpAsset, from ident.Identity, amount uint64) error {
	if _, ok := s.ledger.assets[lpAsset]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetUnknown, lpAsset)
	}
	key := accountKey{Asset: lpAsset, Holder: from}
	if _, ok := s.account(key); !ok {
		return fmt.Errorf("%w: %s", ErrAccountUnknown, from)
	}
	bal := s.balance(key)
	if bal < amount {
		return fmt.Errorf("%w: have %d, burn %d", ErrInsufficientFunds, bal, amount)
	}
	sup := s.supply(lpAsset)
	if sup < amount {
		return ErrSupplyUnderflow
	}
	s.balances[key] = bal - amount
	s.supplies[lpAsset] = sup - amount
	return nil
}

// Commit applies every buffered effect to the underlying ledger. A stage
// commits at most once; discarding an uncommitted stage applies nothing.
func (s *Stage) Commit() {
	if s.done {
		return
	}
	s.done = true
	for key, acct := range s.created {
		s.ledger.accounts[key] = acct
	}
	for key, bal := range s.balances {
		acct, ok := s.ledger.accounts[key]
		if !ok {
			continue
		}
		acct.Balance = bal
	}
	for assetID, sup := range s.supplies {
		if entry, ok := s.ledger.assets[assetID]; ok {
			entry.supply = sup
		}
	}
}
