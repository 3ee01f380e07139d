package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/client"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
)

// pair: issue a one-time token for adding another device.
func pairCmd() *cobra.Command {
	var invalidate bool
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Issue a pairing token (QR payload) for a new device",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if invalidate {
				n, err := s.api.InvalidatePairingTokens(cmd.Context())
				if err != nil {
					return explain(err)
				}
				fmt.Printf("Invalidated %d pending token(s)\n", n)
				return nil
			}

			issued, err := s.api.IssuePairingToken(cmd.Context())
			if err != nil {
				return explain(err)
			}
			fmt.Printf("Token:      %s\nQR payload: %s\nExpires:    %s\n", issued.Token, issued.QRPayload, issued.ExpiresAt)
			fmt.Println("On the new device run: pumpkin redeem '<token or QR payload>'")
			return nil
		},
	}
	cmd.Flags().BoolVar(&invalidate, "invalidate", false, "invalidate all pending tokens instead")
	return cmd
}

// redeem: register this installation with a token from `pumpkin pair`.
func redeemCmd() *cobra.Command {
	var (
		class        string
		providerName string
	)
	cmd := &cobra.Command{
		Use:   "redeem <token-or-qr-payload>",
		Short: "Add this installation as a device using a pairing token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, err := crypto.NewProvider(providerName)
			if err != nil {
				return err
			}
			keys := crypto.NewPregenerator(provider)
			keys.Warm()

			privateKey, err := ensureKey(ctx, keys)
			if err != nil {
				return err
			}
			pub, err := crypto.PublicKeyOf(privateKey)
			if err != nil {
				return err
			}

			prev, _ := loadProfile(home)
			api := client.New(resolveServer(prev))
			res, err := api.RedeemPairingToken(ctx, args[0], device.Class(class), pub)
			if err != nil {
				return explain(err)
			}
			p, err := signIn(ctx, api, res, provider.Name())
			if err != nil {
				return err
			}
			fmt.Printf("Paired device %s for %s. Messages sent before pairing are not readable here; import a backup to restore them.\n",
				p.DeviceID, p.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&class, "class", string(device.ClassCLI), "device class (web, ios, android, cli)")
	cmd.Flags().StringVar(&providerName, "provider", crypto.ProviderHybrid, "crypto provider (hybrid or rsa-oaep)")
	return cmd
}
