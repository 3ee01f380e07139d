package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const defaultServer = "http://localhost:8080"

var (
	home      string
	serverURL string
	verbose   bool

	log *logger.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "pumpkin",
		Short:        "Multi-device end-to-end encrypted messaging client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				home = os.Getenv("PUMPKIN_HOME")
			}
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".pumpkin")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if serverURL == "" {
				serverURL = os.Getenv("PUMPKIN_SERVER")
			}

			if verbose {
				log = logger.New(logger.DevelopmentMode).Named("pumpkin")
			} else {
				log = logger.NewNop()
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "profile dir (default $PUMPKIN_HOME or ~/.pumpkin)")
	root.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (default $PUMPKIN_SERVER, the saved profile, or "+defaultServer+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		keygenCmd(),
		registerCmd(),
		loginCmd(),
		whoamiCmd(),
		pairCmd(),
		redeemCmd(),
		devicesCmd(),
		chatCmd(),
		conversationsCmd(),
		sendCmd(),
		historyCmd(),
		listenCmd(),
		exportCmd(),
		importCmd(),
		sweepCmd(),
	)
	return root.Execute()
}

// resolveServer picks the API URL: flag or env first, then the profile.
func resolveServer(p *profile) string {
	switch {
	case serverURL != "":
		return serverURL
	case p != nil && p.Server != "":
		return p.Server
	default:
		return defaultServer
	}
}
