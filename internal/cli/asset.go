package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poollabs/goamm/internal/core/asset"
	"github.com/poollabs/goamm/internal/core/feemath"
	"github.com/poollabs/goamm/internal/core/pool"
)

func newAssetCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Register and fund assets",
	}
	cmd.AddCommand(
		newAssetRegisterCommand(app),
		newAssetMintCommand(app),
		newAssetInfoCommand(app),
		newAssetQuoteCommand(app),
	)
	return cmd
}

func newAssetRegisterCommand(app *App) *cobra.Command {
	var (
		name       string
		decimals   uint8
		extensions []string
		feeBps     uint16
		feeMax     uint64
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an asset with its extensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveAsset(name)
			if err != nil {
				return err
			}

			desc := asset.Descriptor{Identity: id, Decimals: decimals}
			for _, raw := range extensions {
				flag, err := asset.ParseExtensionFlag(strings.TrimSpace(raw))
				if err != nil {
					return err
				}
				desc.Extensions = append(desc.Extensions, flag)
			}
			if feeBps > 0 || feeMax > 0 {
				desc.TransferFee = &asset.TransferFeeConfig{BasisPoints: feeBps, MaximumFee: feeMax}
				if !desc.HasExtension(asset.ExtTransferFee) {
					desc.Extensions = append(desc.Extensions, asset.ExtTransferFee)
				}
			}

			return app.withEngine(cmd.Context(), true, func(engine *pool.Engine) error {
				if err := engine.Ledger().RegisterAsset(desc); err != nil {
					return err
				}
				app.log.Info("asset registered",
					zap.String("asset", id.String()),
					zap.Uint8("decimals", decimals),
					zap.Int("extensions", len(desc.Extensions)))
				fmt.Printf("registered %s as %s\n", name, id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "asset label or hex identity")
	cmd.Flags().Uint8Var(&decimals, "decimals", 6, "display decimals")
	cmd.Flags().StringSliceVar(&extensions, "extensions", nil, "extension flags (e.g. transfer-fee,metadata)")
	cmd.Flags().Uint16Var(&feeBps, "transfer-fee-bps", 0, "transfer fee in basis points")
	cmd.Flags().Uint64Var(&feeMax, "transfer-fee-max", 0, "transfer fee cap in base units")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newAssetMintCommand(app *App) *cobra.Command {
	var (
		name   string
		to     string
		amount uint64
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint units of an asset to an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := resolveAsset(name)
			if err != nil {
				return err
			}
			holder, err := resolveAccount(to)
			if err != nil {
				return err
			}

			return app.withEngine(cmd.Context(), true, func(engine *pool.Engine) error {
				if err := engine.Ledger().EnsureAccount(assetID, holder, holder); err != nil {
					return err
				}
				if err := engine.Ledger().Mint(assetID, holder, amount); err != nil {
					return err
				}
				fmt.Printf("minted %d of %s to %s (balance %d)\n",
					amount, name, to, engine.Ledger().Balance(assetID, holder))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "asset label or hex identity")
	cmd.Flags().StringVar(&to, "to", "", "destination account label or hex identity")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount in base units")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func newAssetQuoteCommand(app *App) *cobra.Command {
	var (
		name    string
		deliver uint64
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the gross transfer needed to deliver an exact amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := resolveAsset(name)
			if err != nil {
				return err
			}

			return app.withEngine(cmd.Context(), false, func(engine *pool.Engine) error {
				desc, err := engine.Ledger().Asset(assetID)
				if err != nil {
					return err
				}
				gross, fee, err := feemath.TransferFeeIncluded(desc.TransferFee, deliver)
				if err != nil {
					return err
				}
				fmt.Printf("deliver %d of %s: send %d (fee %d)\n", deliver, name, gross, fee)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "asset label or hex identity")
	cmd.Flags().Uint64Var(&deliver, "deliver", 0, "amount the destination must receive")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("deliver")
	return cmd
}

func newAssetInfoCommand(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show an asset's descriptor and supply",
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := resolveAsset(name)
			if err != nil {
				return err
			}

			return app.withEngine(cmd.Context(), false, func(engine *pool.Engine) error {
				desc, err := engine.Ledger().Asset(assetID)
				if err != nil {
					return err
				}
				supply, err := engine.Ledger().Supply(assetID)
				if err != nil {
					return err
				}

				fmt.Printf("asset:    %s\n", desc.Identity)
				fmt.Printf("decimals: %d\n", desc.Decimals)
				fmt.Printf("supply:   %d\n", supply)
				if desc.TransferFee != nil {
					fmt.Printf("transfer fee: %d bps (max %d)\n",
						desc.TransferFee.BasisPoints, desc.TransferFee.MaximumFee)
				}
				for _, ext := range desc.Extensions {
					fmt.Printf("extension: %s\n", ext)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "asset label or hex identity")
	cmd.MarkFlagRequired("name")
	return cmd
}
