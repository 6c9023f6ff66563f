package pool

import (
	"fmt"

	"github.com/poollabs/goamm/internal/core/asset"
	"github.com/poollabs/goamm/internal/core/feemath"
	"github.com/poollabs/goamm/internal/core/ident"
	"github.com/poollabs/goamm/internal/core/token"
)

// LPAssetDecimals is the display scale of every minted LP share asset.
const LPAssetDecimals uint8 = 6

// Direction selects which side of the pair a swap sends in.
type Direction uint8

const (
	XtoY Direction = iota + 1
	YtoX
)

func (d Direction) String() string {
	switch d {
	case XtoY:
		return "x-to-y"
	case YtoX:
		return "y-to-x"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Engine orchestrates the four pool operations against pool state, calling
// the fee math and the token ledger, and enforcing invariants and slippage
// bounds. Each operation is atomic: every balance effect is staged on the
// ledger and pool state is written only after all constituent transfers
// have confirmed their delivered amounts. There is no internal concurrency;
// the surrounding substrate totally orders operations per pool.
type Engine struct {
	ledger *token.Ledger
	pools  map[ident.Identity]*Record
}

// NewEngine returns an engine over the given token ledger.
func NewEngine(ledger *token.Ledger) *Engine {
	return &Engine{
		ledger: ledger,
		pools:  make(map[ident.Identity]*Record),
	}
}

// Ledger exposes the engine's token ledger for account funding and reads.
func (e *Engine) Ledger() *token.Ledger {
	return e.ledger
}

// Pool returns the record for a config identity.
func (e *Engine) Pool(id ident.Identity) (*Record, error) {
	rec, ok := e.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return rec, nil
}

// Pools returns every pool known to the engine, in no particular order.
func (e *Engine) Pools() []*Record {
	out := make([]*Record, 0, len(e.pools))
	for _, rec := range e.pools {
		out = append(out, rec)
	}
	return out
}

// Restore loads a previously persisted record into the engine. The record's
// identity bindings are verified before it is accepted.
func (e *Engine) Restore(rec *Record) error {
	if err := verifyBinding(rec); err != nil {
		return err
	}
	if _, ok := e.pools[rec.Config.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPoolExists, rec.Config.ID)
	}
	e.pools[rec.Config.ID] = rec
	return nil
}

// InitParams carries everything InitializePool needs.
type InitParams struct {
	Seed        uint64
	AssetX      ident.Identity
	AssetY      ident.Identity
	TradeFeeBps uint16
	Allowlist   []ident.Identity
}

// InitializePool creates a pool: immutable config plus zeroed state. Both
// assets must already be registered on the token ledger and pass extension
// admission; the trading fee is capped at 10%; the pair must be distinct.
// The LP asset is created here, plain, zero-supply, owned by the pool
// authority, and the two vaults are opened under the authority. Either the
// whole pool comes into existence or nothing does; a rejected asset never
// leaves a partial pool behind.
func (e *Engine) InitializePool(p InitParams) (*Record, error) {
	if p.TradeFeeBps > feemath.MaxTradeFeeBasisPoints {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFeeConfig, p.TradeFeeBps)
	}
	if p.AssetX.Equal(p.AssetY) {
		return nil, ErrDuplicateAssets
	}

	descX, err := e.ledger.Asset(p.AssetX)
	if err != nil {
		return nil, err
	}
	descY, err := e.ledger.Asset(p.AssetY)
	if err != nil {
		return nil, err
	}
	if err := asset.Admit(&descX); err != nil {
		return nil, err
	}
	if err := asset.Admit(&descY); err != nil {
		return nil, err
	}

	cfg := Config{
		Seed:        p.Seed,
		AssetX:      p.AssetX,
		AssetY:      p.AssetY,
		TradeFeeBps: p.TradeFeeBps,
		Allowlist:   p.Allowlist,
	}
	deriveIdentities(&cfg)

	if _, ok := e.pools[cfg.ID]; ok {
		return nil, fmt.Errorf("%w: seed %d", ErrPoolExists, p.Seed)
	}

	// LP shares are always a plain asset: the pool mints and burns them
	// itself and no transfer may skim them.
	if err := e.ledger.RegisterAsset(asset.Descriptor{
		Identity: cfg.LPAsset,
		Decimals: LPAssetDecimals,
	}); err != nil {
		return nil, err
	}
	if err := e.ledger.CreateAccount(p.AssetX, cfg.VaultX, cfg.Authority); err != nil {
		return nil, err
	}
	if err := e.ledger.CreateAccount(p.AssetY, cfg.VaultY, cfg.Authority); err != nil {
		return nil, err
	}

	rec := &Record{
		Config: cfg,
		State:  State{Config: cfg.ID},
	}
	e.pools[cfg.ID] = rec
	return rec, nil
}

// verifyBinding re-derives the config's identity set from its seed and
// compares each against the stored values in constant time. A mismatch
// means the caller resolved state that does not belong to this config.
func verifyBinding(rec *Record) error {
	expect := Config{Seed: rec.Config.Seed}
	deriveIdentities(&expect)

	ok := expect.ID.Equal(rec.Config.ID)
	ok = expect.Authority.Equal(rec.Config.Authority) && ok
	ok = expect.LPAsset.Equal(rec.Config.LPAsset) && ok
	ok = expect.VaultX.Equal(rec.Config.VaultX) && ok
	ok = expect.VaultY.Equal(rec.Config.VaultY) && ok
	ok = rec.Config.ID.Equal(rec.State.Config) && ok
	if !ok {
		return ErrAccountMismatch
	}
	return nil
}

// checkOperational gates every mutating operation: the pool must exist,
// its bindings must verify, and it must not be locked.
func (e *Engine) checkOperational(poolID ident.Identity) (*Record, error) {
	rec, err := e.Pool(poolID)
	if err != nil {
		return nil, err
	}
	if err := verifyBinding(rec); err != nil {
		return nil, err
	}
	if rec.Config.Locked {
		return nil, ErrPoolLocked
	}
	return rec, nil
}

// Deposit adds liquidity and mints LP shares to the caller.
//
// The first deposit seeds the pool: the delivered amounts become the
// reserves and floor(sqrt(receivedX*receivedY)) shares are minted. Later
// deposits mint by the minimum-ratio rule over the delivered amounts, so a
// leg shrunk by a transfer fee or contributed off-ratio only earns credit
// for the less generous side; the excess is not refunded, it stays in the
// reserves for existing holders.
func (e *Engine) Deposit(caller, poolID ident.Identity, amountX, amountY, minLPOut uint64) (uint64, error) {
	rec, err := e.checkOperational(poolID)
	if err != nil {
		return 0, err
	}
	cfg, st := &rec.Config, &rec.State

	if !cfg.AllowsDepositor(caller) {
		return 0, ErrNotAllowlisted
	}
	if amountX == 0 && amountY == 0 {
		return 0, ErrZeroAmount
	}
	if !st.seeded() && (amountX == 0 || amountY == 0) {
		return 0, ErrZeroAmount
	}

	stage := e.ledger.Begin()

	// The caller's LP account is staged with everything else: a failed
	// deposit leaves no account behind.
	if err := stage.EnsureAccount(cfg.LPAsset, caller, caller); err != nil {
		return 0, err
	}

	receivedX, err := stage.Transfer(cfg.AssetX, caller, cfg.VaultX, amountX, caller)
	if err != nil {
		return 0, err
	}
	receivedY, err := stage.Transfer(cfg.AssetY, caller, cfg.VaultY, amountY, caller)
	if err != nil {
		return 0, err
	}

	var lpMinted uint64
	if !st.seeded() {
		lpMinted = feemath.InitialLPShares(receivedX, receivedY)
		if lpMinted == 0 {
			return 0, ErrInsufficientInitialLiquidity
		}
	} else {
		fromX := feemath.ShareOfSupply(receivedX, st.LPSupply, st.ReserveX)
		fromY := feemath.ShareOfSupply(receivedY, st.LPSupply, st.ReserveY)
		lpMinted = min(fromX, fromY)
		if lpMinted == 0 {
			return 0, ErrZeroOutput
		}
	}
	if lpMinted < minLPOut {
		return 0, fmt.Errorf("%w: minted %d, minimum %d", ErrSlippageExceeded, lpMinted, minLPOut)
	}

	if err := stage.MintLPShares(cfg.LPAsset, caller, lpMinted); err != nil {
		return 0, err
	}

	newX := st.ReserveX + receivedX
	newY := st.ReserveY + receivedY
	if newX < st.ReserveX || newY < st.ReserveY || st.LPSupply+lpMinted < st.LPSupply {
		return 0, fmt.Errorf("%w: reserve overflow on deposit", ErrConsistencyFault)
	}

	stage.Commit()
	st.ReserveX = newX
	st.ReserveY = newY
	st.LPSupply += lpMinted
	return lpMinted, nil
}

// Withdraw burns LP shares and pays out both reserves proportionally. The
// payout amounts are computed before any transfer and are what the vaults
// send; a transfer-fee asset may deliver the recipient less, as the recipient
// bears the skim on the way out, and the reserve accounting uses the sent
// amounts. Slippage bounds are therefore evaluated against the sent
// amounts, since the pool only controls what it sends.
func (e *Engine) Withdraw(caller, poolID ident.Identity, lpBurn, minX, minY uint64) (uint64, uint64, error) {
	rec, err := e.checkOperational(poolID)
	if err != nil {
		return 0, 0, err
	}
	cfg, st := &rec.Config, &rec.State

	if lpBurn == 0 {
		return 0, 0, ErrZeroAmount
	}
	if !st.seeded() || lpBurn > st.LPSupply {
		return 0, 0, ErrInsufficientLiquidity
	}

	outX := feemath.ProportionalOut(st.ReserveX, lpBurn, st.LPSupply)
	outY := feemath.ProportionalOut(st.ReserveY, lpBurn, st.LPSupply)

	// Cannot occur with the proportional formula; asserted anyway.
	if outX > st.ReserveX || outY > st.ReserveY {
		return 0, 0, fmt.Errorf("%w: proportional payout exceeds reserve", ErrInsufficientLiquidity)
	}
	if outX < minX || outY < minY {
		return 0, 0, fmt.Errorf("%w: sending %d/%d, minimum %d/%d", ErrSlippageExceeded, outX, outY, minX, minY)
	}

	stage := e.ledger.Begin()

	// Burn before paying out.
	if err := stage.BurnLPShares(cfg.LPAsset, caller, lpBurn); err != nil {
		return 0, 0, err
	}
	if _, err := stage.Transfer(cfg.AssetX, cfg.VaultX, caller, outX, cfg.Authority); err != nil {
		return 0, 0, err
	}
	if _, err := stage.Transfer(cfg.AssetY, cfg.VaultY, caller, outY, cfg.Authority); err != nil {
		return 0, 0, err
	}

	stage.Commit()
	st.LPSupply -= lpBurn
	st.ReserveX -= outX
	st.ReserveY -= outY
	return outX, outY, nil
}

// Swap trades amountIn of the direction's input asset for the output asset
// under the constant-product curve. The delivered input amount (post
// transfer-fee) is the basis for all math: the trading fee is taken from
// it and retained in the input reserve, the remainder prices the output as
// floor(reserveOut*netIn/(reserveIn+netIn)). A swap may never drain the
// output side to zero. After the reserve update the product must not have
// decreased; a violation is an internal fault and aborts before commit.
func (e *Engine) Swap(caller, poolID ident.Identity, dir Direction, amountIn, minAmountOut uint64) (uint64, error) {
	rec, err := e.checkOperational(poolID)
	if err != nil {
		return 0, err
	}
	cfg, st := &rec.Config, &rec.State

	var assetIn, assetOut, vaultIn, vaultOut ident.Identity
	var reserveIn, reserveOut uint64
	switch dir {
	case XtoY:
		assetIn, assetOut = cfg.AssetX, cfg.AssetY
		vaultIn, vaultOut = cfg.VaultX, cfg.VaultY
		reserveIn, reserveOut = st.ReserveX, st.ReserveY
	case YtoX:
		assetIn, assetOut = cfg.AssetY, cfg.AssetX
		vaultIn, vaultOut = cfg.VaultY, cfg.VaultX
		reserveIn, reserveOut = st.ReserveY, st.ReserveX
	default:
		return 0, fmt.Errorf("%w: unknown swap direction", ErrAccountMismatch)
	}

	if amountIn == 0 {
		return 0, ErrZeroAmount
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrInsufficientLiquidity
	}

	stage := e.ledger.Begin()

	receivedIn, err := stage.Transfer(assetIn, caller, vaultIn, amountIn, caller)
	if err != nil {
		return 0, err
	}
	if receivedIn == 0 {
		return 0, ErrZeroAmount
	}

	feeAmount := feemath.TradingFee(receivedIn, cfg.TradeFeeBps)
	netIn := receivedIn - feeAmount

	amountOut := feemath.ConstantProductOut(reserveIn, reserveOut, netIn)
	if amountOut == 0 {
		return 0, ErrZeroOutput
	}
	if amountOut >= reserveOut {
		return 0, fmt.Errorf("%w: swap would drain output reserve", ErrInsufficientLiquidity)
	}
	if amountOut < minAmountOut {
		return 0, fmt.Errorf("%w: out %d, minimum %d", ErrSlippageExceeded, amountOut, minAmountOut)
	}

	// The full received amount, trading fee included, stays in the pool.
	newIn := reserveIn + receivedIn
	if newIn < reserveIn {
		return 0, fmt.Errorf("%w: reserve overflow on swap", ErrConsistencyFault)
	}
	newOut := reserveOut - amountOut

	if !feemath.ProductIncreased(reserveIn, reserveOut, newIn, newOut) {
		return 0, fmt.Errorf("%w: reserve product decreased on swap", ErrConsistencyFault)
	}

	if _, err := stage.Transfer(assetOut, vaultOut, caller, amountOut, cfg.Authority); err != nil {
		return 0, err
	}

	stage.Commit()
	switch dir {
	case XtoY:
		st.ReserveX, st.ReserveY = newIn, newOut
	case YtoX:
		st.ReserveY, st.ReserveX = newIn, newOut
	}
	return amountOut, nil
}

// SwapDirection maps the asset a caller wants to send to a direction,
// verifying it against the pool configuration in constant time.
func (e *Engine) SwapDirection(poolID, assetIn ident.Identity) (Direction, error) {
	rec, err := e.Pool(poolID)
	if err != nil {
		return 0, err
	}
	switch {
	case rec.Config.AssetX.Equal(assetIn):
		return XtoY, nil
	case rec.Config.AssetY.Equal(assetIn):
		return YtoX, nil
	default:
		return 0, fmt.Errorf("%w: asset %s is not in the pool pair", ErrAccountMismatch, assetIn)
	}
}
