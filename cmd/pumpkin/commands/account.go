package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/client"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

func passwordFrom(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if pw := os.Getenv("PUMPKIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("password required (--password or $PUMPKIN_PASSWORD)")
}

// ensureKey returns the stored device key, generating and saving one when
// none exists. keys should already be warming.
func ensureKey(ctx context.Context, keys *crypto.Pregenerator) (string, error) {
	privateKey, err := loadKey(home)
	if err != nil {
		return "", err
	}
	if privateKey != "" {
		return privateKey, nil
	}
	kp, err := keys.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("generate device key: %w", err)
	}
	if err := saveKey(home, kp.PrivateKey); err != nil {
		return "", err
	}
	return kp.PrivateKey, nil
}

// signIn stores the credentials of res as the current profile.
func signIn(ctx context.Context, api *client.Client, res httpdto.AuthResponse, providerName string) (*profile, error) {
	p := &profile{
		Server:      api.BaseURL(),
		UserID:      res.UserID,
		DeviceID:    res.Device.ID,
		DeviceClass: res.Device.DeviceClass,
		AccessToken: res.Credentials.AccessToken,
		ExpiresAt:   res.Credentials.ExpiresAt,
		Provider:    providerName,
	}
	if res.User != nil {
		p.Username, p.Email = res.User.Username, res.User.Email
	} else if me, err := api.Me(ctx); err == nil {
		p.Username, p.Email = me.Username, me.Email
	}

	if prev, err := loadProfile(home); err == nil && prev.UserID != p.UserID {
		fmt.Fprintf(os.Stderr, "warning: %s holds local history of %s; use a separate --home per account\n", home, prev.Username)
	}
	if err := saveProfile(home, p); err != nil {
		return nil, err
	}
	return p, nil
}

func keygenCmd() *cobra.Command {
	var (
		force        bool
		providerName string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the device key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := loadKey(home)
			if err != nil {
				return err
			}
			if existing != "" && !force {
				return fmt.Errorf("a device key already exists in %s (use --force to replace it)", home)
			}
			provider, err := crypto.NewProvider(providerName)
			if err != nil {
				return err
			}
			kp, err := provider.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := saveKey(home, kp.PrivateKey); err != nil {
				return err
			}
			fmt.Printf("Device key written to %s\nPublic key: %s\n", home, kp.PublicKey)
			if existing != "" {
				fmt.Println("The previous key is gone. Log in with --new-device to register the new one.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing key")
	cmd.Flags().StringVar(&providerName, "provider", crypto.ProviderHybrid, "crypto provider (hybrid or rsa-oaep)")
	return cmd
}

func registerCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			api := client.New(resolveServer(nil))
			u, err := api.Register(cmd.Context(), args[0], args[1], pw)
			if err != nil {
				return explain(err)
			}
			fmt.Printf("Registered %s (%s). Run `pumpkin login %s` to add this device.\n", u.Username, u.ID, u.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (default $PUMPKIN_PASSWORD)")
	return cmd
}

func loginCmd() *cobra.Command {
	var (
		password     string
		class        string
		providerName string
		newDevice    bool
	)
	cmd := &cobra.Command{
		Use:   "login <username-or-email>",
		Short: "Sign in, registering this installation as a device if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, err := crypto.NewProvider(providerName)
			if err != nil {
				return err
			}
			keys := crypto.NewPregenerator(provider)
			keys.Warm()

			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			privateKey, err := ensureKey(ctx, keys)
			if err != nil {
				return err
			}

			prev, _ := loadProfile(home)
			req := httpdto.LoginRequest{Identity: args[0], Password: pw}
			if prev != nil && !newDevice && prev.DeviceID != "" &&
				(strings.EqualFold(prev.Username, args[0]) || strings.EqualFold(prev.Email, args[0])) {
				req.DeviceID = prev.DeviceID
				providerName = prev.Provider
			} else {
				pub, err := crypto.PublicKeyOf(privateKey)
				if err != nil {
					return err
				}
				req.DeviceClass = class
				req.PublicKey = pub
			}

			api := client.New(resolveServer(prev))
			res, err := api.Login(ctx, req)
			if err != nil {
				return explain(err)
			}
			p, err := signIn(ctx, api, res, providerName)
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as %s on device %s (%s)\n", p.Username, p.DeviceID, p.DeviceClass)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (default $PUMPKIN_PASSWORD)")
	cmd.Flags().StringVar(&class, "class", string(device.ClassCLI), "device class for a new device (web, ios, android, cli)")
	cmd.Flags().StringVar(&providerName, "provider", crypto.ProviderHybrid, "crypto provider (hybrid or rsa-oaep)")
	cmd.Flags().BoolVar(&newDevice, "new-device", false, "register a new device even if this profile has one")
	return cmd
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and device",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			me, err := s.api.Me(cmd.Context())
			if err != nil {
				return explain(err)
			}
			d, err := s.api.GetDevice(cmd.Context(), s.profile.deviceID())
			if err != nil {
				return explain(err)
			}
			fmt.Printf("User:    %s (%s)\nDevice:  %s (%s, active=%t)\nServer:  %s\nExpires: %s\n",
				me.Username, me.ID, d.ID, d.Class, d.IsActive, s.api.BaseURL(), s.profile.ExpiresAt)
			return nil
		},
	}
}
