package poolstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poollabs/goamm/internal/core/asset"
	"github.com/poollabs/goamm/internal/core/ident"
	"github.com/poollabs/goamm/internal/core/pool"
	"github.com/poollabs/goamm/internal/core/token"
	"github.com/poollabs/goamm/internal/storage/kvdb"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(kvdb.NewMemoryDB(), 16)
	require.NoError(t, err)
	return store
}

func seededEngine(t *testing.T) (*pool.Engine, *pool.Record, ident.Identity) {
	t.Helper()

	ledger := token.NewLedger()
	assetX := ident.Derive(ident.RoleAsset, []byte("store-x"))
	assetY := ident.Derive(ident.RoleAsset, []byte("store-y"))
	trader := ident.Derive(ident.RoleAccount, []byte("store-trader"))

	require.NoError(t, ledger.RegisterAsset(asset.Descriptor{Identity: assetX, Decimals: 6}))
	require.NoError(t, ledger.RegisterAsset(asset.Descriptor{
		Identity:    assetY,
		Decimals:    9,
		Extensions:  []asset.ExtensionFlag{asset.ExtTransferFee, asset.ExtMetadata},
		TransferFee: &asset.TransferFeeConfig{BasisPoints: 100, MaximumFee: 5_000},
	}))
	for _, id := range []ident.Identity{assetX, assetY} {
		require.NoError(t, ledger.CreateAccount(id, trader, trader))
		require.NoError(t, ledger.Mint(id, trader, 10_000_000))
	}

	engine := pool.NewEngine(ledger)
	rec, err := engine.InitializePool(pool.InitParams{
		Seed: 5, AssetX: assetX, AssetY: assetY, TradeFeeBps: 30,
	})
	require.NoError(t, err)
	_, err = engine.Deposit(trader, rec.Config.ID, 1_000_000, 1_000_000, 0)
	require.NoError(t, err)

	return engine, rec, trader
}

func TestSaveAndLoadPool(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, rec, _ := seededEngine(t)

	require.NoError(t, store.SavePool(ctx, rec))

	got, err := store.Pool(ctx, rec.Config.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	_, err = store.Pool(ctx, pool.DeriveConfigID(404))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPoolCacheHit(t *testing.T) {
	ctx := context.Background()
	db := kvdb.NewMemoryDB()
	store, err := New(db, 16)
	require.NoError(t, err)
	_, rec, _ := seededEngine(t)
	require.NoError(t, store.SavePool(ctx, rec))

	// Remove the backing row: the cached record still serves reads.
	require.NoError(t, db.Delete(ctx, poolKey(rec.Config.ID)))
	got, err := store.Pool(ctx, rec.Config.ID)
	require.NoError(t, err)
	require.Equal(t, rec.State, got.State)
}

func TestEngineRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine, rec, trader := seededEngine(t)

	require.NoError(t, store.SaveEngine(ctx, engine))

	restored, err := store.LoadEngine(ctx)
	require.NoError(t, err)

	got, err := restored.Pool(rec.Config.ID)
	require.NoError(t, err)
	require.Equal(t, rec.State, got.State)
	require.Equal(t, rec.Config.TradeFeeBps, got.Config.TradeFeeBps)

	// Ledger state survived: descriptors, supplies and balances.
	descY, err := restored.Ledger().Asset(rec.Config.AssetY)
	require.NoError(t, err)
	require.NotNil(t, descY.TransferFee)
	require.Equal(t, uint16(100), descY.TransferFee.BasisPoints)

	require.Equal(t,
		engine.Ledger().Balance(rec.Config.AssetX, trader),
		restored.Ledger().Balance(rec.Config.AssetX, trader))

	supply, err := restored.Ledger().Supply(rec.Config.LPAsset)
	require.NoError(t, err)
	require.Equal(t, rec.State.LPSupply, supply)

	// The restored engine keeps operating.
	_, err = restored.Swap(trader, rec.Config.ID, pool.XtoY, 10_000, 0)
	require.NoError(t, err)
}

func TestAssetRecordCodec(t *testing.T) {
	rec := token.AssetRecord{
		Descriptor: asset.Descriptor{
			Identity:    ident.Derive(ident.RoleAsset, []byte("codec")),
			Decimals:    9,
			Extensions:  []asset.ExtensionFlag{asset.ExtTransferFee, asset.ExtCPIGuard},
			TransferFee: &asset.TransferFeeConfig{BasisPoints: 250, MaximumFee: 99},
		},
		Supply: 123_456_789,
	}

	decoded, err := decodeAssetRecord(encodeAssetRecord(rec))
	require.NoError(t, err)
	require.Equal(t, rec, decoded)

	// Plain asset, no extensions.
	plain := token.AssetRecord{
		Descriptor: asset.Descriptor{Identity: rec.Descriptor.Identity, Decimals: 0},
	}
	decoded, err = decodeAssetRecord(encodeAssetRecord(plain))
	require.NoError(t, err)
	require.Equal(t, plain, decoded)

	_, err = decodeAssetRecord([]byte{9, 9, 9})
	require.Error(t, err)
}
