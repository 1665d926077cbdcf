package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"infranest/internal/api"
	"infranest/internal/dsl"
	"infranest/internal/logging"
	"infranest/internal/watch"
	"infranest/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	spec  string
	watch bool
}

func newServeCmd(e *env) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing workspace over HTTP",
		Long: `Serve the workspace API. With --spec the given file becomes the initial
specification and POST /api/admin/reload re-reads it; --watch reloads it on
every save.

Examples:
  infranest serve
  infranest serve --addr :9090 --spec api.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), e, opts)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "listen address")
	f.String("mode", "", "gin mode (debug|release|test)")
	f.String("files", "", "directory for downloaded archives")
	f.String("schema", "", "PostgreSQL schema for the DDL preview")
	f.Duration("debounce", 0, "validation debounce")
	f.StringVar(&opts.spec, "spec", "", "specification file to start from")
	f.BoolVar(&opts.watch, "watch", false, "reload --spec when it changes")
	return cmd
}

func runServe(ctx context.Context, e *env, opts serveOptions) error {
	log := e.logger
	client := e.client()
	sess, err := e.session(client)
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.spec != "" {
		spec, err := dsl.LoadFile(opts.spec)
		if err != nil {
			return err
		}
		sess.UseSpecification(spec)
	}

	gin.SetMode(e.cfg.Server.Mode)
	srv := &http.Server{
		Addr: e.cfg.Server.Addr,
		Handler: api.NewRouter(api.Deps{
			Session:  sess,
			Upstream: client,
			SpecFile: opts.spec,
			Schema:   e.cfg.Database.Schema,
			Logger:   log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("upstream", logging.RedactURL(e.cfg.Upstream.URL)).Msg("serving workspace")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})
	if opts.watch && opts.spec != "" {
		g.Go(func() error {
			return watchInto(gctx, e, opts.spec, sess)
		})
	}
	return g.Wait()
}

// watchInto makes every successful reload of path the current specification.
func watchInto(ctx context.Context, e *env, path string, sess *workspace.Session) error {
	w, err := watch.NewWatcher(path, watch.WithLogger(e.logger))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if r.Err == nil {
				sess.UseSpecification(r.Specification)
			}
		}
	}
}
