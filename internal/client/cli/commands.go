package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/docstore/internal/client/client"
	"github.com/dmitrijs2005/docstore/internal/filex"
	"github.com/dmitrijs2005/docstore/internal/server/auth"
	"github.com/spf13/cobra"
)

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) uploadCommand() *cobra.Command {
	var (
		contentType string
		multipart   bool
		filename    string
	)
	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Store a document and print its id and proof",
		Long: `Store a document. Without a file, or with "-", the body is read from
stdin. The content type is guessed from the file extension unless --type
is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := client.Upload{Body: a.in, Size: -1, ContentType: contentType}

			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				fi, err := f.Stat()
				if err != nil {
					return err
				}
				u.Body, u.Size = f, fi.Size()
				if u.ContentType == "" {
					u.ContentType = mime.TypeByExtension(filepath.Ext(args[0]))
				}
				if filename == "" {
					filename = filepath.Base(args[0])
				}
			}

			if multipart {
				u.Filename = filename
				if u.Filename == "" {
					u.Filename = "stdin"
				}
			}

			doc, err := a.client.Upload(cmd.Context(), a.config.Route, u)
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "content type of the document")
	cmd.Flags().BoolVarP(&multipart, "multipart", "m", false, "send as a multipart form, keeping the file name")
	cmd.Flags().StringVar(&filename, "filename", "", "file name recorded with a multipart upload")
	return cmd
}

func (a *App) getCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <digest>",
		Short: "Fetch the stored bytes of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" || output == "-" {
				_, err := a.client.Download(cmd.Context(), a.config.Route, args[0], a.out)
				return err
			}
			return filex.WriteAtomic(output, func(w io.Writer) error {
				_, err := a.client.Download(cmd.Context(), a.config.Route, args[0], w)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func (a *App) proofCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "proof <digest>",
		Short: "Print the proof document of a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.client.Proof(cmd.Context(), a.config.Route, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(doc)
		},
	}
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <digest>",
		Short: "Delete a document (requires --token)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Delete(cmd.Context(), a.config.Route, args[0]); err != nil {
				if errors.Is(err, client.ErrUnauthorized) && a.config.Token == "" {
					return fmt.Errorf("%w (no token configured)", err)
				}
				return err
			}
			_, err := fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return err
		},
	}
}

func (a *App) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Ping(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, "ok")
			return err
		},
	}
}

func (a *App) tokenCommand() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a bearer token with the server secret",
		Long: `Sign a bearer token for user-id with the server's HMAC secret. The secret
is prompted for without echo unless --secret is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := []byte(secret)
			if len(key) == 0 {
				var err error
				key, err = GetPassword(cmd.ErrOrStderr(), "Secret key")
				if err != nil {
					return err
				}
				defer wipe(key)
			}
			if len(key) == 0 {
				return errors.New("empty secret key")
			}

			tok, err := auth.GenerateToken(args[0], key, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, tok)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "server secret key")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
