// Package pool implements the constant-product pool engine: configuration
// and state entities, and the four operations (initialize, deposit,
// withdraw, swap) that mutate them under the x*y=k invariant with
// transfer-fee-aware amount reconciliation.
package pool

import (
	"encoding/binary"
	"fmt"

	"github.com/poollabs/goamm/internal/core/ident"
)

// Config is a pool's immutable configuration, fixed at initialization.
type Config struct {
	// Seed scopes identity derivation; two pools over the same pair with
	// different seeds are distinct pools.
	Seed uint64

	// AssetX and AssetY identify the pair. Order is significant for the
	// pair's naming, not for the correctness of the formula.
	AssetX ident.Identity
	AssetY ident.Identity

	// TradeFeeBps is the pool trading fee on swap input, in basis points,
	// at most 1000 (10%). The fee is retained in the input-side reserve.
	TradeFeeBps uint16

	// Derived identities: the config's own handle, the pool signer, the LP
	// share asset, and the two vaults.
	ID        ident.Identity
	Authority ident.Identity
	LPAsset   ident.Identity
	VaultX    ident.Identity
	VaultY    ident.Identity

	// Allowlist restricts deposits to the listed principals when non-empty.
	Allowlist []ident.Identity

	// Locked suspends deposits, withdrawals and swaps while set.
	Locked bool
}

// AllowsDepositor reports whether the principal may deposit: always when the
// allowlist is empty, otherwise only when listed.
func (c *Config) AllowsDepositor(who ident.Identity) bool {
	if len(c.Allowlist) == 0 {
		return true
	}
	for _, allowed := range c.Allowlist {
		if allowed.Equal(who) {
			return true
		}
	}
	return false
}

// State is a pool's mutable state: the reserves the engine tracks (post-fee
// amounts actually held) and the outstanding LP supply. It is created at
// initialization, owned exclusively by the engine, and mutated only after
// the corresponding transfers have confirmed their delivered amounts.
type State struct {
	Config ident.Identity

	ReserveX uint64
	ReserveY uint64
	LPSupply uint64
}

// seeded reports whether the pool holds liquidity. Reserves and supply are
// all zero or all nonzero together (invariant I1); LPSupply stands for all
// three.
func (s *State) seeded() bool {
	return s.LPSupply != 0
}

// Record bundles a config with its state for storage and display.
type Record struct {
	Config Config
	State  State
}

// DeriveConfigID computes the config identity from its seed.
func DeriveConfigID(seed uint64) ident.Identity {
	return ident.DeriveWithSeed(ident.RoleConfig, seed)
}

// deriveIdentities fills a config's derived identity fields from its seed.
// A given (seed, role) pair always yields the same identity, so pool
// entities are addressable without any shared registry.
func deriveIdentities(c *Config) {
	c.ID = DeriveConfigID(c.Seed)
	c.Authority = ident.Derive(ident.RoleAuthority, c.ID[:])
	c.LPAsset = ident.Derive(ident.RoleLPAsset, c.ID[:])
	c.VaultX = ident.Derive(ident.RoleVaultX, c.ID[:])
	c.VaultY = ident.Derive(ident.RoleVaultY, c.ID[:])
}

// Binary layout versions. Encoding is fixed-width big-endian with
// length-prefixed variable sections, in the style of ledger entries.
const recordVersion = 1

// EncodeRecord serializes a pool record for storage.
func EncodeRecord(r *Record) []byte {
	size := 1 + 8 + 32*7 + 2 + 1 + 2 + len(r.Config.Allowlist)*32 + 8*3
	data := make([]byte, 0, size)

	data = append(data, recordVersion)
	data = binary.BigEndian.AppendUint64(data, r.Config.Seed)
	data = append(data, r.Config.ID[:]...)
	data = append(data, r.Config.AssetX[:]...)
	data = append(data, r.Config.AssetY[:]...)
	data = append(data, r.Config.Authority[:]...)
	data = append(data, r.Config.LPAsset[:]...)
	data = append(data, r.Config.VaultX[:]...)
	data = append(data, r.Config.VaultY[:]...)
	data = binary.BigEndian.AppendUint16(data, r.Config.TradeFeeBps)
	if r.Config.Locked {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	data = binary.BigEndian.AppendUint16(data, uint16(len(r.Config.Allowlist)))
	for _, id := range r.Config.Allowlist {
		data = append(data, id[:]...)
	}
	data = binary.BigEndian.AppendUint64(data, r.State.ReserveX)
	data = binary.BigEndian.AppendUint64(data, r.State.ReserveY)
	data = binary.BigEndian.AppendUint64(data, r.State.LPSupply)

	return data
}

// DecodeRecord deserializes a pool record.
func DecodeRecord(data []byte) (*Record, error) {
	const fixedHead = 1 + 8 + 32*7 + 2 + 1 + 2
	if len(data) < fixedHead {
		return nil, fmt.Errorf("pool: record too short: %d bytes", len(data))
	}
	if data[0] != recordVersion {
		return nil, fmt.Errorf("pool: unknown record version %d", data[0])
	}

	r := &Record{}
	offset := 1

	r.Config.Seed = binary.BigEndian.Uint64(data[offset:])
	offset += 8

	for _, dst := range []*ident.Identity{
		&r.Config.ID, &r.Config.AssetX, &r.Config.AssetY,
		&r.Config.Authority, &r.Config.LPAsset,
		&r.Config.VaultX, &r.Config.VaultY,
	} {
		copy(dst[:], data[offset:offset+32])
		offset += 32
	}

	r.Config.TradeFeeBps = binary.BigEndian.Uint16(data[offset:])
	offset += 2
	r.Config.Locked = data[offset] != 0
	offset++

	allowCount := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+allowCount*32+24 {
		return nil, fmt.Errorf("pool: record truncated at allowlist")
	}
	if allowCount > 0 {
		r.Config.Allowlist = make([]ident.Identity, allowCount)
		for i := range r.Config.Allowlist {
			copy(r.Config.Allowlist[i][:], data[offset:offset+32])
			offset += 32
		}
	}

	r.State.Config = r.Config.ID
	r.State.ReserveX = binary.BigEndian.Uint64(data[offset:])
	offset += 8
	r.State.ReserveY = binary.BigEndian.Uint64(data[offset:])
	offset += 8
	r.State.LPSupply = binary.BigEndian.Uint64(data[offset:])

	return r, nil
}
