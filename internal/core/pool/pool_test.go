package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poollabs/goamm/internal/core/ident"
)

func sampleRecord() *Record {
	cfg := Config{
		Seed:        99,
		AssetX:      ident.Derive(ident.RoleAsset, []byte("x")),
		AssetY:      ident.Derive(ident.RoleAsset, []byte("y")),
		TradeFeeBps: 250,
		Allowlist: []ident.Identity{
			ident.Derive(ident.RoleAccount, []byte("lp-one")),
			ident.Derive(ident.RoleAccount, []byte("lp-two")),
		},
		Locked: true,
	}
	deriveIdentities(&cfg)
	return &Record{
		Config: cfg,
		State: State{
			Config:   cfg.ID,
			ReserveX: 123_456,
			ReserveY: 789_012,
			LPSupply: 311_987,
		},
	}
}

func TestRecordCodecRoundTrip(t *testing.T) {
	rec := sampleRecord()

	decoded, err := DecodeRecord(EncodeRecord(rec))
	require.NoError(t, err)
	require.Equal(t, rec, decoded)

	// Empty allowlist, unlocked, zero state.
	bare := &Record{Config: Config{Seed: 1}}
	deriveIdentities(&bare.Config)
	bare.State.Config = bare.Config.ID
	decoded, err = DecodeRecord(EncodeRecord(bare))
	require.NoError(t, err)
	require.Equal(t, bare, decoded)
}

func TestRecordCodecRejectsGarbage(t *testing.T) {
	rec := sampleRecord()
	data := EncodeRecord(rec)

	_, err := DecodeRecord(data[:10])
	require.Error(t, err)

	_, err = DecodeRecord(data[:len(data)-4])
	require.Error(t, err)

	data[0] = 99
	_, err = DecodeRecord(data)
	require.Error(t, err)
}

func TestDeriveIdentitiesDeterministic(t *testing.T) {
	a := Config{Seed: 7}
	b := Config{Seed: 7}
	c := Config{Seed: 8}
	deriveIdentities(&a)
	deriveIdentities(&b)
	deriveIdentities(&c)

	require.Equal(t, a, b)
	require.NotEqual(t, a.ID, c.ID)

	// All five identities of one pool are distinct.
	seen := map[ident.Identity]bool{}
	for _, id := range []ident.Identity{a.ID, a.Authority, a.LPAsset, a.VaultX, a.VaultY} {
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestAllowsDepositor(t *testing.T) {
	open := Config{}
	anyone := ident.Derive(ident.RoleAccount, []byte("anyone"))
	require.True(t, open.AllowsDepositor(anyone))

	listed := ident.Derive(ident.RoleAccount, []byte("listed"))
	gated := Config{Allowlist: []ident.Identity{listed}}
	require.True(t, gated.AllowsDepositor(listed))
	require.False(t, gated.AllowsDepositor(anyone))
}
