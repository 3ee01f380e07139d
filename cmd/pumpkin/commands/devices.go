package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
)

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List active devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			devices, err := s.api.ListDevices(cmd.Context())
			if err != nil {
				return explain(err)
			}
			printDevices(devices, s.profile.deviceID())
			return nil
		},
	}
	cmd.AddCommand(
		deviceActionCmd("deactivate", "Deactivate a device, freeing its slot", func(ctx context.Context, s *session, id uuid.UUID) error {
			return s.api.DeactivateDevice(ctx, id)
		}),
		deviceActionCmd("revoke", "Revoke a device permanently", func(ctx context.Context, s *session, id uuid.UUID) error {
			return s.api.RevokeDevice(ctx, id)
		}),
		deviceActionCmd("reactivate", "Reactivate a deactivated device", func(ctx context.Context, s *session, id uuid.UUID) error {
			_, err := s.api.ReactivateDevice(ctx, id)
			return err
		}),
	)
	return cmd
}

func deviceActionCmd(use, short string, action func(context.Context, *session, uuid.UUID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <device-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid device id %q", args[0])
			}
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := action(cmd.Context(), s, id); err != nil {
				return explain(err)
			}
			fmt.Printf("%s: %s\n", use, id)
			return nil
		},
	}
}

func printDevices(devices []device.Device, current uuid.UUID) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLASS\tCREATED\tLAST ACTIVE\t")
	for _, d := range devices {
		marker := ""
		if d.ID == current {
			marker = "(this device)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Class,
			d.CreatedAt.Local().Format("2006-01-02 15:04"),
			d.LastActiveAt.Local().Format("2006-01-02 15:04"), marker)
	}
	_ = w.Flush()
	fmt.Printf("%d of %d device slots in use\n", len(devices), device.DefaultMaxActive)
}
