package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/client"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/localstore"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

// chat <username>: open (or create) the conversation with a user.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <username>",
		Short: "Open the conversation with a user and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.conversationFor(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			fmt.Println(id)
			return nil
		},
	}
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			convs, err := s.messenger.Conversations(ctx)
			if err != nil {
				return explain(err)
			}
			for _, c := range convs {
				peer := c.Peer(s.profile.userID())
				name, err := s.messenger.Username(ctx, peer)
				if err != nil {
					name = peer.String()
				}
				last := "-"
				if !c.LastMessageAt.IsZero() {
					last = c.LastMessageAt.Local().Format(time.RFC822)
				}
				fmt.Printf("%s  %-20s  %s\n", c.ID, name, last)
			}
			return nil
		},
	}
}

// send <conversation|username> <message>: encrypt for every device and send.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id|username> <message>",
		Short: "Encrypt a message for every device of both participants and send it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			convID, err := s.conversationFor(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			msg, report, err := s.messenger.SendText(ctx, convID, args[1])
			if err != nil {
				return explain(err)
			}
			fmt.Printf("sent %s to %d device(s)\n", msg.ID, len(report.Encrypted))
			if report.Partial() {
				for _, skip := range report.Skipped {
					fmt.Fprintf(os.Stderr, "warning: device %s skipped: %v\n", skip.DeviceID, skip.Err)
				}
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var imported bool
	cmd := &cobra.Command{
		Use:   "history <conversation-id|username>",
		Short: "Show the messages this device can read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			convID, err := s.conversationFor(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			if imported {
				return printImported(ctx, s.store, convID)
			}

			entries, err := s.messenger.History(ctx, convID)
			if err != nil {
				return explain(err)
			}
			for _, e := range entries {
				printEntry(ctx, s.messenger, e)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&imported, "imported", false, "show history restored from backups instead")
	return cmd
}

// listen: stream new messages until interrupted.
func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print incoming messages as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go localstore.RunCacheSweeper(ctx, s.store, localstore.DefaultSweepInterval, log)

			rt, err := s.api.Connect(ctx)
			if err != nil {
				return explain(err)
			}
			defer rt.Close()
			fmt.Fprintln(os.Stderr, "listening, ctrl-c to stop")

			for {
				select {
				case <-ctx.Done():
					return nil
				case frame, ok := <-rt.Frames():
					if !ok {
						if err := rt.Err(); err != nil && !errors.Is(err, client.ErrRealtimeClosed) {
							return err
						}
						return nil
					}
					handleFrame(ctx, s.messenger, frame)
				}
			}
		},
	}
}

func handleFrame(ctx context.Context, m *client.Messenger, frame httpdto.ServerFrame) {
	if frame.Type == httpdto.FrameError {
		fmt.Fprintf(os.Stderr, "server error: %s (%s)\n", frame.Error, frame.Code)
		return
	}
	entry, ok, err := m.HandleFrame(ctx, frame)
	if err != nil {
		log.Warnf("bad frame: %v", err)
		return
	}
	if ok && !entry.Own {
		printEntry(ctx, m, entry)
	}
}

func printEntry(ctx context.Context, m *client.Messenger, e client.Entry) {
	name := "me"
	if !e.Own {
		if n, err := m.Username(ctx, e.Message.SenderID); err == nil {
			name = n
		} else {
			name = e.Message.SenderID.String()
		}
	}
	fmt.Printf("[%s] %s: %s\n", e.Message.CreatedAt.Local().Format("2006-01-02 15:04:05"), name, e.Text)
}

func printImported(ctx context.Context, store *localstore.Store, convID uuid.UUID) error {
	msgs, err := store.ImportedMessages(ctx, convID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		name := m.SenderUsername
		if m.IsOwn {
			name = "me"
		}
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), name, m.Content)
	}
	return nil
}
