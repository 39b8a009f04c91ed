package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/tokencalc/internal/presentation/web"
)

type serveOptions struct {
	host         string
	port         int
	secureCookie bool
}

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the token calculator web form",
		Long: `Start an HTTP server with the token calculator form and a small JSON API:

  GET  /               the form
  POST /count          count the submitted text or PDF
  GET  /api/encodings  list encodings
  POST /api/count      {"text": "...", "encoding": "cl100k_base"}

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "address to listen on (default from config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "port to listen on (default from config)")
	cmd.Flags().BoolVar(&opts.secureCookie, "secure-cookie", false, "mark the session cookie Secure (use behind HTTPS)")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	app, err := requireApp()
	if err != nil {
		return err
	}
	sc := app.Config.Server

	if opts.host != "" {
		sc.Host = opts.host
	}
	if opts.port != 0 {
		sc.Port = opts.port
	}

	c := app.Container
	srv, err := web.NewServer(web.Config{
		Addr:            sc.Addr(),
		MaxUploadBytes:  sc.MaxUploadBytes,
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		ShutdownTimeout: sc.ShutdownTimeout,
		DefaultEncoding: app.Config.DefaultEncoding(),
		SecureCookie:    opts.secureCookie,
	}, c.Controller(), c.Counter(), c.SessionStore(), c.Logger())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.StartSessionCleanup(ctx)

	app.Formatter.Success("Token calculator listening on http://%s", srv.Addr())
	return srv.ListenAndServe(ctx)
}
