package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/docstore/internal/buildinfo"
	"github.com/dmitrijs2005/docstore/internal/client/client"
	"github.com/dmitrijs2005/docstore/internal/client/config"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	ConfigFile string
	ServerURL  string
	Route      string
	Token      string
	Timeout    time.Duration
}

type App struct {
	config *config.Config
	client client.Client
	in     io.Reader
	out    io.Writer
}

// newClient is a test seam.
var newClient = func(cfg *config.Config) client.Client {
	return client.NewHTTPClient(cfg.ServerURL, cfg.Token, cfg.Timeout)
}

// NewRootCommand builds the command tree reading from in and printing to
// out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	app := &App{in: in, out: out}
	var flags globalFlags

	root := &cobra.Command{
		Use:   "docstore-client",
		Short: "Command-line client for a docstore server",
		Long: `docstore-client uploads documents to a docstore server and fetches them
back by digest.

Settings are read from built-in defaults, then the JSON file given with
--config, then the flags below.`,
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.ConfigFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &flags, cfg)
			app.config = cfg
			app.client = newClient(cfg)
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "path to JSON config file")
	pf.StringVarP(&flags.ServerURL, "server", "s", "", "server URL (default http://127.0.0.1:8080)")
	pf.StringVarP(&flags.Route, "route", "r", "", "endpoint route (default /documents)")
	pf.StringVar(&flags.Token, "token", "", "bearer token sent with requests")
	pf.DurationVar(&flags.Timeout, "timeout", 0, "request timeout (default 5m)")

	root.AddCommand(
		app.uploadCommand(),
		app.getCommand(),
		app.proofCommand(),
		app.deleteCommand(),
		app.pingCommand(),
		app.tokenCommand(),
	)
	return root
}

// applyFlags overlays the flags given on the command line. Flags left at
// their zero value do not override the config file.
func applyFlags(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("server") {
		cfg.ServerURL = flags.ServerURL
	}
	if fs.Changed("route") {
		cfg.Route = flags.Route
	}
	if fs.Changed("token") {
		cfg.Token = flags.Token
	}
	if fs.Changed("timeout") {
		cfg.Timeout = flags.Timeout
	}
}

// Execute runs the client with the process arguments and exits non-zero
// on failure.
func Execute() {
	if err := NewRootCommand(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
