package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/backup"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/client"
)

// export [file]: write a readable backup of every message this device can read.
func exportCmd() *cobra.Command {
	var upload bool
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export readable history to a JSON backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			doc, err := s.messenger.Export(ctx)
			if err != nil {
				return explain(err)
			}
			var buf bytes.Buffer
			if err := backup.Encode(&buf, doc); err != nil {
				return err
			}

			name := client.ExportFileName(s.profile.Username, time.Now())
			if len(args) == 1 {
				name = args[0]
			}
			if err := writeFile(name, buf.Bytes(), 0o600); err != nil {
				return err
			}
			fmt.Printf("Exported %d conversation(s), %d message(s) to %s\n",
				doc.Metadata.TotalConversations, doc.Metadata.TotalMessages, name)

			if upload {
				target, err := s.api.BackupUploadURL(ctx, name, int64(buf.Len()))
				if err != nil {
					return explain(err)
				}
				if err := s.api.UploadBackup(ctx, target, buf.Bytes()); err != nil {
					return err
				}
				fmt.Printf("Uploaded as %s\n", target.Key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "also upload the backup to server storage")
	return cmd
}

// import <file> | --key <object-key>: merge a backup into local history.
func importCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON backup; messages already present are skipped",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (key == "") {
				return fmt.Errorf("give either a file or --key")
			}
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			var r io.ReadCloser
			if key != "" {
				target, err := s.api.BackupDownloadURL(ctx, key)
				if err != nil {
					return explain(err)
				}
				if r, err = s.api.DownloadBackup(ctx, target); err != nil {
					return err
				}
			} else if r, err = os.Open(args[0]); err != nil {
				return err
			}
			defer r.Close()

			doc, err := backup.Decode(r)
			if err != nil {
				return err
			}
			summary, err := s.messenger.Import(ctx, doc)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d conversation(s), %d message(s); %d already present\n",
				summary.ConversationsImported, summary.MessagesImported, summary.MessagesSkipped)
			for _, e := range summary.Errors {
				fmt.Fprintf(os.Stderr, "skipped: %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key of an uploaded backup")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Drop cached plaintext older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.store.SweepCache(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d cached plaintext(s)\n", n)
			return nil
		},
	}
}
