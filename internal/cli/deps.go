package cli

import (
	"context"

	"infranest/internal/blob"
	"infranest/internal/catalog"
	"infranest/internal/remote"
	"infranest/internal/validation"
	"infranest/internal/workspace"
)

func (e *env) client() *remote.Client {
	return remote.New(e.cfg.Upstream.URL,
		remote.WithTimeout(e.cfg.Upstream.Timeout),
		remote.WithLogger(e.logger))
}

// registry is the built-in catalog with catalog.dir merged over it.
func (e *env) registry() (*catalog.Registry, error) {
	reg := catalog.NewRegistry(catalog.Builtin())
	if e.cfg.Catalog.Dir == "" {
		return reg, nil
	}
	fws, err := catalog.LoadDir(e.cfg.Catalog.Dir)
	if err != nil {
		return nil, err
	}
	reg.Merge(fws)
	return reg, nil
}

// frameworks lists the upstream catalog, falling back to the local one.
func (e *env) frameworks(ctx context.Context) ([]catalog.Framework, string, error) {
	reg, err := e.registry()
	if err != nil {
		return nil, "", err
	}
	fws, err := e.client().ListFrameworks(ctx)
	if err != nil || len(fws) == 0 {
		e.logger.Warn().Err(err).Msg("using local framework catalog")
		return reg.List(), "local", nil
	}
	return fws, "upstream", nil
}

func (e *env) session(client *remote.Client) (*workspace.Session, error) {
	reg, err := e.registry()
	if err != nil {
		return nil, err
	}
	coord := validation.NewCoordinator(client,
		validation.WithDebounce(e.cfg.Validation.Debounce),
		validation.WithTimeout(e.cfg.Validation.Timeout),
		validation.WithLogger(e.logger))
	return workspace.NewSession(workspace.Deps{
		Store:       workspace.NewStore(e.logger),
		Coordinator: coord,
		Translator:  client,
		Generator:   client,
		Lister:      client,
		Downloader:  client,
		Frameworks:  reg,
		Blobs:       &blob.Local{Root: e.cfg.Files.Root},
		Logger:      e.logger,
	}), nil
}
