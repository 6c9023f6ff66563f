package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poollabs/goamm/internal/core/asset"
	"github.com/poollabs/goamm/internal/core/ident"
	"github.com/poollabs/goamm/internal/core/token"
)

type testEnv struct {
	engine *Engine
	assetX ident.Identity
	assetY ident.Identity
	trader ident.Identity
}

// newTestEnv builds an engine with two registered assets and one funded
// trader account per asset. Descriptors default to plain; override with fee
// configs before pool creation when a scenario needs a fee asset.
func newTestEnv(t *testing.T, descX, descY asset.Descriptor) *testEnv {
	t.Helper()

	ledger := token.NewLedger()
	trader := ident.Derive(ident.RoleAccount, []byte("trader"))

	if descX.Identity.IsZero() {
		descX.Identity = ident.Derive(ident.RoleAsset, []byte("asset-x"))
	}
	if descY.Identity.IsZero() {
		descY.Identity = ident.Derive(ident.RoleAsset, []byte("asset-y"))
	}
	require.NoError(t, ledger.RegisterAsset(descX))
	require.NoError(t, ledger.RegisterAsset(descY))
	for _, id := range []ident.Identity{descX.Identity, descY.Identity} {
		require.NoError(t, ledger.CreateAccount(id, trader, trader))
		require.NoError(t, ledger.Mint(id, trader, 1_000_000_000))
	}

	return &testEnv{
		engine: NewEngine(ledger),
		assetX: descX.Identity,
		assetY: descY.Identity,
		trader: trader,
	}
}

func plainEnv(t *testing.T) *testEnv {
	return newTestEnv(t, asset.Descriptor{Decimals: 6}, asset.Descriptor{Decimals: 6})
}

func (env *testEnv) createPool(t *testing.T, feeBps uint16) *Record {
	t.Helper()
	rec, err := env.engine.InitializePool(InitParams{
		Seed:        42,
		AssetX:      env.assetX,
		AssetY:      env.assetY,
		TradeFeeBps: feeBps,
	})
	require.NoError(t, err)
	return rec
}

func (env *testEnv) seedPool(t *testing.T, rec *Record, x, y uint64) uint64 {
	t.Helper()
	lp, err := env.engine.Deposit(env.trader, rec.Config.ID, x, y, 0)
	require.NoError(t, err)
	return lp
}

func TestInitializePoolRejectsBadConfig(t *testing.T) {
	env := plainEnv(t)

	_, err := env.engine.InitializePool(InitParams{
		Seed: 1, AssetX: env.assetX, AssetY: env.assetY, TradeFeeBps: 1001,
	})
	require.ErrorIs(t, err, ErrInvalidFeeConfig)

	_, err = env.engine.InitializePool(InitParams{
		Seed: 1, AssetX: env.assetX, AssetY: env.assetX,
	})
	require.ErrorIs(t, err, ErrDuplicateAssets)

	_, err = env.engine.InitializePool(InitParams{
		Seed: 1, AssetX: env.assetX, AssetY: env.assetY, TradeFeeBps: 1000,
	})
	require.NoError(t, err)

	_, err = env.engine.InitializePool(InitParams{
		Seed: 1, AssetX: env.assetX, AssetY: env.assetY,
	})
	require.ErrorIs(t, err, ErrPoolExists)
}

func TestInitializePoolRejectsDisallowedExtension(t *testing.T) {
	env := newTestEnv(t,
		asset.Descriptor{Decimals: 6},
		asset.Descriptor{Decimals: 6, Extensions: []asset.ExtensionFlag{asset.ExtTransferHook}},
	)

	_, err := env.engine.InitializePool(InitParams{
		Seed: 1, AssetX: env.assetX, AssetY: env.assetY,
	})
	var rejected *asset.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, asset.ExtTransferHook, rejected.Flag)

	// Rejection leaves nothing behind: the same seed initializes cleanly
	// once the pair is acceptable.
	plain := ident.Derive(ident.RoleAsset, []byte("replacement"))
	require.NoError(t, env.engine.Ledger().RegisterAsset(asset.Descriptor{Identity: plain, Decimals: 6}))
	_, err = env.engine.InitializePool(InitParams{
		Seed: 1, AssetX: env.assetX, AssetY: plain,
	})
	require.NoError(t, err)
}

func TestFirstDepositGeometricMean(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)

	// sqrt(1_000_000 * 4_000_000) = 2_000_000.
	lp, err := env.engine.Deposit(env.trader, rec.Config.ID, 1_000_000, 4_000_000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000), lp)
	require.Equal(t, uint64(1_000_000), rec.State.ReserveX)
	require.Equal(t, uint64(4_000_000), rec.State.ReserveY)
	require.Equal(t, uint64(2_000_000), rec.State.LPSupply)
	require.Equal(t, uint64(2_000_000), env.engine.Ledger().Balance(rec.Config.LPAsset, env.trader))
}

func TestFirstDepositEdges(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)

	_, err := env.engine.Deposit(env.trader, rec.Config.ID, 0, 4_000_000, 0)
	require.ErrorIs(t, err, ErrZeroAmount)

	// floor(sqrt(1*... )) can round to zero for tiny unbalanced deposits
	// of fee assets, but with plain assets 1x1 seeds exactly one share.
	lp, err := env.engine.Deposit(env.trader, rec.Config.ID, 1, 1, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), lp)
}

func TestSubsequentDepositMinRatio(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	// Balanced deposit at 10% of reserves mints 10% of supply.
	lp, err := env.engine.Deposit(env.trader, rec.Config.ID, 100_000, 400_000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(200_000), lp)

	// Off-ratio deposit credits the lesser side; the Y excess stays in
	// the reserves uncompensated.
	yBefore := rec.State.ReserveY
	lp, err = env.engine.Deposit(env.trader, rec.Config.ID, 110_000, 4_000_000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(220_000), lp)
	require.Equal(t, yBefore+4_000_000, rec.State.ReserveY)
}

func TestDepositLopsidedReservesMintsByLesserLeg(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)

	// Extreme skew: one unit of X against 2^62 of Y seeds LPSupply 2^31.
	require.NoError(t, env.engine.Ledger().Mint(env.assetY, env.trader, (1<<62)+(1<<40)))
	lp := env.seedPool(t, rec, 1, 1<<62)
	require.Equal(t, uint64(1)<<31, lp)

	// The X leg's share quotient is 2^33 * 2^31 / 1 = 2^64, past 64 bits;
	// the mint still comes from the lesser Y leg:
	// 2^40 * 2^31 / 2^62 = 512.
	require.NoError(t, env.engine.Ledger().Mint(env.assetX, env.trader, 1<<33))
	lp2, err := env.engine.Deposit(env.trader, rec.Config.ID, 1<<33, 1<<40, 512)
	require.NoError(t, err)
	require.Equal(t, uint64(512), lp2)
}

func TestDepositSlippage(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	before := rec.State

	_, err := env.engine.Deposit(env.trader, rec.Config.ID, 100_000, 400_000, 200_001)
	require.ErrorIs(t, err, ErrSlippageExceeded)

	// Nothing mutated on failure.
	require.Equal(t, before, rec.State)
	require.Equal(t, uint64(2_000_000), env.engine.Ledger().Balance(rec.Config.LPAsset, env.trader))
}

func TestFailedDepositCreatesNoAccount(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	other := ident.Derive(ident.RoleAccount, []byte("other"))
	for _, id := range []ident.Identity{env.assetX, env.assetY} {
		require.NoError(t, env.engine.Ledger().CreateAccount(id, other, other))
		require.NoError(t, env.engine.Ledger().Mint(id, other, 1_000_000))
	}

	_, err := env.engine.Deposit(other, rec.Config.ID, 100_000, 400_000, 200_001)
	require.ErrorIs(t, err, ErrSlippageExceeded)

	for _, acct := range env.engine.Ledger().Accounts() {
		require.False(t, acct.Asset.Equal(rec.Config.LPAsset) && acct.Holder.Equal(other),
			"failed deposit must not open an LP account")
	}

	// The same deposit within bounds opens the account with the mint.
	lp, err := env.engine.Deposit(other, rec.Config.ID, 100_000, 400_000, 200_000)
	require.NoError(t, err)
	require.Equal(t, lp, env.engine.Ledger().Balance(rec.Config.LPAsset, other))
}

func TestWithdrawProportional(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	outX, outY, err := env.engine.Withdraw(env.trader, rec.Config.ID, 500_000, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(250_000), outX)
	require.Equal(t, uint64(1_000_000), outY)
	require.Equal(t, uint64(1_500_000), rec.State.LPSupply)
	require.Equal(t, uint64(750_000), rec.State.ReserveX)
	require.Equal(t, uint64(3_000_000), rec.State.ReserveY)
}

func TestWithdrawEdges(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)

	_, _, err := env.engine.Withdraw(env.trader, rec.Config.ID, 0, 0, 0)
	require.ErrorIs(t, err, ErrZeroAmount)

	_, _, err = env.engine.Withdraw(env.trader, rec.Config.ID, 1, 0, 0)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	env.seedPool(t, rec, 1_000_000, 4_000_000)

	_, _, err = env.engine.Withdraw(env.trader, rec.Config.ID, 2_000_001, 0, 0)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, _, err = env.engine.Withdraw(env.trader, rec.Config.ID, 500_000, 250_001, 0)
	require.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestWithdrawFullDrainResets(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	lp := env.seedPool(t, rec, 1_000_000, 4_000_000)

	outX, outY, err := env.engine.Withdraw(env.trader, rec.Config.ID, lp, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), outX)
	require.Equal(t, uint64(4_000_000), outY)
	require.Equal(t, uint64(0), rec.State.LPSupply)

	// The pool can be reseeded after a full withdrawal.
	lp2, err := env.engine.Deposit(env.trader, rec.Config.ID, 9, 16, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(12), lp2)
}

func TestDepositWithdrawRoundTripNeverProfits(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	env.seedPool(t, rec, 1_000_003, 3_999_999)

	for _, amtX := range []uint64{1, 7, 999, 123_457} {
		amtY := amtX * 4
		lp, err := env.engine.Deposit(env.trader, rec.Config.ID, amtX, amtY, 0)
		require.NoError(t, err)
		require.NotZero(t, lp)
		outX, outY, err := env.engine.Withdraw(env.trader, rec.Config.ID, lp, 0, 0)
		require.NoError(t, err)
		require.LessOrEqual(t, outX, amtX, "round trip must not profit in X")
		require.LessOrEqual(t, outY, amtY, "round trip must not profit in Y")
	}
}

func TestSwapWorkedExample(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 300)
	env.seedPool(t, rec, 1000, 2000)

	// fee = floor(10*300/10000) = 0, net = 10,
	// out = floor(2000*10/1010) = 19.
	out, err := env.engine.Swap(env.trader, rec.Config.ID, XtoY, 10, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(19), out)
	require.Equal(t, uint64(1010), rec.State.ReserveX)
	require.Equal(t, uint64(1981), rec.State.ReserveY)
}

func TestSwapProductNeverDecreases(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 30)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	dir := XtoY
	for _, amt := range []uint64{1, 13, 997, 50_000, 777_777} {
		beforeX, beforeY := rec.State.ReserveX, rec.State.ReserveY
		out, err := env.engine.Swap(env.trader, rec.Config.ID, dir, amt, 0)
		if err != nil {
			require.ErrorIs(t, err, ErrZeroOutput)
			continue
		}
		require.NotZero(t, out)
		afterX, afterY := rec.State.ReserveX, rec.State.ReserveY
		require.GreaterOrEqual(t, afterX*afterY, beforeX*beforeY, "product must not decrease")
		if dir == XtoY {
			dir = YtoX
		} else {
			dir = XtoY
		}
	}
}

func TestSwapMonotonicity(t *testing.T) {
	// Larger input never yields less output.
	outs := make([]uint64, 0, 4)
	for _, amt := range []uint64{100, 1_000, 10_000, 100_000} {
		env := plainEnv(t)
		rec := env.createPool(t, 30)
		env.seedPool(t, rec, 1_000_000, 4_000_000)
		out, err := env.engine.Swap(env.trader, rec.Config.ID, XtoY, amt, 0)
		require.NoError(t, err)
		outs = append(outs, out)
	}
	for i := 1; i < len(outs); i++ {
		require.GreaterOrEqual(t, outs[i], outs[i-1])
	}

	// Higher fee never yields more output for the same input.
	var prev uint64
	for i, bps := range []uint16{0, 30, 300, 1000} {
		env := plainEnv(t)
		rec := env.createPool(t, bps)
		env.seedPool(t, rec, 1_000_000, 4_000_000)
		out, err := env.engine.Swap(env.trader, rec.Config.ID, XtoY, 50_000, 0)
		require.NoError(t, err)
		if i > 0 {
			require.LessOrEqual(t, out, prev)
		}
		prev = out
	}
}

func TestSwapEdges(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 30)

	_, err := env.engine.Swap(env.trader, rec.Config.ID, XtoY, 100, 0)
	require.ErrorIs(t, err, ErrInsufficientLiquidity, "unseeded pool cannot swap")

	env.seedPool(t, rec, 1_000_000, 4_000_000)

	_, err = env.engine.Swap(env.trader, rec.Config.ID, XtoY, 0, 0)
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = env.engine.Swap(env.trader, rec.Config.ID, YtoX, 1, 0)
	require.ErrorIs(t, err, ErrZeroOutput, "tiny input rounds to zero output")

	_, err = env.engine.Swap(env.trader, rec.Config.ID, XtoY, 10_000, 100_000)
	require.ErrorIs(t, err, ErrSlippageExceeded)

	// The output side can never be fully drained.
	_, err = env.engine.Swap(env.trader, rec.Config.ID, XtoY, 900_000_000, 0)
	require.NoError(t, err)
	require.NotZero(t, rec.State.ReserveY)
}

func TestSwapFailureLeavesBalancesIntact(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 30)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	balX := env.engine.Ledger().Balance(env.assetX, env.trader)
	before := rec.State

	_, err := env.engine.Swap(env.trader, rec.Config.ID, XtoY, 10_000, 100_000)
	require.ErrorIs(t, err, ErrSlippageExceeded)

	// The input transfer was staged but never committed.
	require.Equal(t, balX, env.engine.Ledger().Balance(env.assetX, env.trader))
	require.Equal(t, before, rec.State)
}

func TestTransferFeeAssetReconciliation(t *testing.T) {
	// Asset Y skims 2% in flight, capped at 1_000 units.
	env := newTestEnv(t,
		asset.Descriptor{Decimals: 6},
		asset.Descriptor{
			Decimals:    6,
			Extensions:  []asset.ExtensionFlag{asset.ExtTransferFee},
			TransferFee: &asset.TransferFeeConfig{BasisPoints: 200, MaximumFee: 1_000},
		},
	)
	rec := env.createPool(t, 0)

	// First deposit: the pool credits only what arrived. Y delivers
	// 4_000_000 - 1_000 (capped), so shares come from delivered amounts.
	lp, err := env.engine.Deposit(env.trader, rec.Config.ID, 1_000_000, 4_000_000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(3_999_000), rec.State.ReserveY, "reserve reflects the delivered amount")
	require.Equal(t, uint64(1_999_749), lp, "floor(sqrt(1_000_000*3_999_000))")

	// Swap X in, fee asset out: the pool sends amountOut, the trader
	// receives amountOut minus the asset's skim, reserves drop by the
	// sent amount.
	balYBefore := env.engine.Ledger().Balance(env.assetY, env.trader)
	out, err := env.engine.Swap(env.trader, rec.Config.ID, XtoY, 100_000, 0)
	require.NoError(t, err)
	got := env.engine.Ledger().Balance(env.assetY, env.trader) - balYBefore
	require.Less(t, got, out, "recipient bears the transfer fee on the way out")
	require.Equal(t, uint64(3_999_000)-out, rec.State.ReserveY)

	// Swap fee asset in: the curve prices on the delivered amount, not
	// the requested one.
	reserveY := rec.State.ReserveY
	_, err = env.engine.Swap(env.trader, rec.Config.ID, YtoX, 200_000, 0)
	require.NoError(t, err)
	require.Equal(t, reserveY+199_000, rec.State.ReserveY, "2% skim capped at 1_000")
}

func TestLockedPoolRejectsOperations(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	rec.Config.Locked = true

	_, err := env.engine.Deposit(env.trader, rec.Config.ID, 1, 1, 0)
	require.ErrorIs(t, err, ErrPoolLocked)
	_, _, err = env.engine.Withdraw(env.trader, rec.Config.ID, 1, 0, 0)
	require.ErrorIs(t, err, ErrPoolLocked)
	_, err = env.engine.Swap(env.trader, rec.Config.ID, XtoY, 1, 0)
	require.ErrorIs(t, err, ErrPoolLocked)

	rec.Config.Locked = false
	_, err = env.engine.Swap(env.trader, rec.Config.ID, XtoY, 1_000, 0)
	require.NoError(t, err)
}

func TestAllowlistGatesDeposits(t *testing.T) {
	env := plainEnv(t)
	other := ident.Derive(ident.RoleAccount, []byte("other"))

	rec, err := env.engine.InitializePool(InitParams{
		Seed:      7,
		AssetX:    env.assetX,
		AssetY:    env.assetY,
		Allowlist: []ident.Identity{other},
	})
	require.NoError(t, err)

	_, err = env.engine.Deposit(env.trader, rec.Config.ID, 100, 100, 0)
	require.ErrorIs(t, err, ErrNotAllowlisted)

	// Swaps are open to everyone; only deposits are gated.
	for _, id := range []ident.Identity{env.assetX, env.assetY} {
		require.NoError(t, env.engine.Ledger().CreateAccount(id, other, other))
		require.NoError(t, env.engine.Ledger().Mint(id, other, 1_000_000))
	}
	_, err = env.engine.Deposit(other, rec.Config.ID, 100_000, 100_000, 0)
	require.NoError(t, err)

	_, err = env.engine.Swap(env.trader, rec.Config.ID, XtoY, 10_000, 0)
	require.NoError(t, err)
}

func TestPoolNotFound(t *testing.T) {
	env := plainEnv(t)
	missing := DeriveConfigID(999)

	_, err := env.engine.Deposit(env.trader, missing, 1, 1, 0)
	require.ErrorIs(t, err, ErrPoolNotFound)
	_, _, err = env.engine.Withdraw(env.trader, missing, 1, 0, 0)
	require.ErrorIs(t, err, ErrPoolNotFound)
	_, err = env.engine.Swap(env.trader, missing, XtoY, 1, 0)
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestBindingVerification(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	// Tampered vault identity fails the constant-time binding check.
	good := rec.Config.VaultX
	rec.Config.VaultX = ident.Derive(ident.RoleVaultX, []byte("imposter"))
	_, err := env.engine.Swap(env.trader, rec.Config.ID, XtoY, 1_000, 0)
	require.ErrorIs(t, err, ErrAccountMismatch)

	rec.Config.VaultX = good
	_, err = env.engine.Swap(env.trader, rec.Config.ID, XtoY, 1_000, 0)
	require.NoError(t, err)
}

func TestSwapDirection(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 0)

	dir, err := env.engine.SwapDirection(rec.Config.ID, env.assetX)
	require.NoError(t, err)
	require.Equal(t, XtoY, dir)

	dir, err = env.engine.SwapDirection(rec.Config.ID, env.assetY)
	require.NoError(t, err)
	require.Equal(t, YtoX, dir)

	_, err = env.engine.SwapDirection(rec.Config.ID, ident.Derive(ident.RoleAsset, []byte("stranger")))
	require.ErrorIs(t, err, ErrAccountMismatch)
}

func TestRestoreRoundTrip(t *testing.T) {
	env := plainEnv(t)
	rec := env.createPool(t, 30)
	env.seedPool(t, rec, 1_000_000, 4_000_000)

	decoded, err := DecodeRecord(EncodeRecord(rec))
	require.NoError(t, err)

	fresh := NewEngine(env.engine.Ledger())
	require.NoError(t, fresh.Restore(decoded))

	got, err := fresh.Pool(rec.Config.ID)
	require.NoError(t, err)
	require.Equal(t, rec.State, got.State)

	// Tampered records are refused.
	decoded.Config.Authority = ident.Derive(ident.RoleAuthority, []byte("evil"))
	require.ErrorIs(t, NewEngine(env.engine.Ledger()).Restore(decoded), ErrAccountMismatch)
}
