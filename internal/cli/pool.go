package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poollabs/goamm/internal/core/ident"
	"github.com/poollabs/goamm/internal/core/pool"
)

func newPoolCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Create and operate pools",
	}
	cmd.AddCommand(
		newPoolCreateCommand(app),
		newPoolDepositCommand(app),
		newPoolWithdrawCommand(app),
		newPoolSwapCommand(app),
		newPoolInfoCommand(app),
	)
	return cmd
}

func newPoolCreateCommand(app *App) *cobra.Command {
	var (
		seed   uint64
		assetX string
		assetY string
		feeBps uint16
		allow  []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Initialize a pool over an asset pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			idX, err := resolveAsset(assetX)
			if err != nil {
				return err
			}
			idY, err := resolveAsset(assetY)
			if err != nil {
				return err
			}
			var allowlist []ident.Identity
			for _, raw := range allow {
				id, err := resolveAccount(raw)
				if err != nil {
					return err
				}
				allowlist = append(allowlist, id)
			}

			return app.withEngine(cmd.Context(), true, func(engine *pool.Engine) error {
				rec, err := engine.InitializePool(pool.InitParams{
					Seed:        seed,
					AssetX:      idX,
					AssetY:      idY,
					TradeFeeBps: feeBps,
					Allowlist:   allowlist,
				})
				if err != nil {
					return err
				}
				app.log.Info("pool created",
					zap.Uint64("seed", seed),
					zap.String("pool", rec.Config.ID.String()),
					zap.Uint16("fee_bps", feeBps))
				fmt.Printf("pool %s created (seed %d)\n", rec.Config.ID, seed)
				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "pool seed")
	cmd.Flags().StringVar(&assetX, "asset-x", "", "first asset label or hex identity")
	cmd.Flags().StringVar(&assetY, "asset-y", "", "second asset label or hex identity")
	cmd.Flags().Uint16Var(&feeBps, "fee-bps", 30, "trading fee in basis points (max 1000)")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "restrict deposits to these accounts")
	cmd.MarkFlagRequired("asset-x")
	cmd.MarkFlagRequired("asset-y")
	return cmd
}

func newPoolDepositCommand(app *App) *cobra.Command {
	var (
		seed    uint64
		from    string
		amountX uint64
		amountY uint64
		minLP   uint64
	)

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add liquidity and mint LP shares",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := resolveAccount(from)
			if err != nil {
				return err
			}

			return app.withEngine(cmd.Context(), true, func(engine *pool.Engine) error {
				poolID := pool.DeriveConfigID(seed)
				minted, err := engine.Deposit(caller, poolID, amountX, amountY, minLP)
				if err != nil {
					return err
				}
				app.log.Info("deposit",
					zap.Uint64("seed", seed),
					zap.Uint64("amount_x", amountX),
					zap.Uint64("amount_y", amountY),
					zap.Uint64("lp_minted", minted))
				fmt.Printf("minted %d LP shares\n", minted)
				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "pool seed")
	cmd.Flags().StringVar(&from, "from", "", "depositor account label or hex identity")
	cmd.Flags().Uint64Var(&amountX, "amount-x", 0, "amount of asset X to deposit")
	cmd.Flags().Uint64Var(&amountY, "amount-y", 0, "amount of asset Y to deposit")
	cmd.Flags().Uint64Var(&minLP, "min-lp", 0, "minimum acceptable LP shares")
	cmd.MarkFlagRequired("from")
	return cmd
}

func newPoolWithdrawCommand(app *App) *cobra.Command {
	var (
		seed   uint64
		from   string
		lpBurn uint64
		minX   uint64
		minY   uint64
	)

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn LP shares for a proportional payout",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := resolveAccount(from)
			if err != nil {
				return err
			}

			return app.withEngine(cmd.Context(), true, func(engine *pool.Engine) error {
				poolID := pool.DeriveConfigID(seed)
				outX, outY, err := engine.Withdraw(caller, poolID, lpBurn, minX, minY)
				if err != nil {
					return err
				}
				app.log.Info("withdraw",
					zap.Uint64("seed", seed),
					zap.Uint64("lp_burned", lpBurn),
					zap.Uint64("out_x", outX),
					zap.Uint64("out_y", outY))
				fmt.Printf("withdrew %d X and %d Y for %d LP shares\n", outX, outY, lpBurn)
				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "pool seed")
	cmd.Flags().StringVar(&from, "from", "", "holder account label or hex identity")
	cmd.Flags().Uint64Var(&lpBurn, "lp", 0, "LP shares to burn")
	cmd.Flags().Uint64Var(&minX, "min-x", 0, "minimum acceptable X payout")
	cmd.Flags().Uint64Var(&minY, "min-y", 0, "minimum acceptable Y payout")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("lp")
	return cmd
}

func newPoolSwapCommand(app *App) *cobra.Command {
	var (
		seed    uint64
		from    string
		assetIn string
		amount  uint64
		minOut  uint64
	)

	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one pool asset for the other",
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := resolveAccount(from)
			if err != nil {
				return err
			}
			inID, err := resolveAsset(assetIn)
			if err != nil {
				return err
			}

			return app.withEngine(cmd.Context(), true, func(engine *pool.Engine) error {
				poolID := pool.DeriveConfigID(seed)
				dir, err := engine.SwapDirection(poolID, inID)
				if err != nil {
					return err
				}
				out, err := engine.Swap(caller, poolID, dir, amount, minOut)
				if err != nil {
					return err
				}
				app.log.Info("swap",
					zap.Uint64("seed", seed),
					zap.String("direction", dir.String()),
					zap.Uint64("amount_in", amount),
					zap.Uint64("amount_out", out))
				fmt.Printf("swapped %d in for %d out\n", amount, out)
				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "pool seed")
	cmd.Flags().StringVar(&from, "from", "", "trader account label or hex identity")
	cmd.Flags().StringVar(&assetIn, "asset-in", "", "asset being sent in")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to send in")
	cmd.Flags().Uint64Var(&minOut, "min-out", 0, "minimum acceptable output")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("asset-in")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func newPoolInfoCommand(app *App) *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show a pool's configuration and state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withEngine(cmd.Context(), false, func(engine *pool.Engine) error {
				rec, err := engine.Pool(pool.DeriveConfigID(seed))
				if err != nil {
					return err
				}

				fmt.Printf("pool:      %s (seed %d)\n", rec.Config.ID, rec.Config.Seed)
				fmt.Printf("asset x:   %s\n", rec.Config.AssetX)
				fmt.Printf("asset y:   %s\n", rec.Config.AssetY)
				fmt.Printf("lp asset:  %s\n", rec.Config.LPAsset)
				fmt.Printf("fee:       %d bps\n", rec.Config.TradeFeeBps)
				fmt.Printf("reserve x: %d\n", rec.State.ReserveX)
				fmt.Printf("reserve y: %d\n", rec.State.ReserveY)
				fmt.Printf("lp supply: %d\n", rec.State.LPSupply)
				if rec.Config.Locked {
					fmt.Println("status:    locked")
				}
				if len(rec.Config.Allowlist) > 0 {
					fmt.Printf("allowlist: %d accounts\n", len(rec.Config.Allowlist))
				}
				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "pool seed")
	return cmd
}
