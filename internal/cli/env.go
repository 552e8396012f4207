package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tmoore22/boostd/internal/catalog"
	"github.com/tmoore22/boostd/internal/engine"
	"github.com/tmoore22/boostd/internal/provider"
	"github.com/tmoore22/boostd/internal/store"
)

// appEnv bundles the opened store and the engine for one command run.
type appEnv struct {
	store  *store.Store
	engine *engine.Engine
}

// openEnv opens the database, loads the catalog and builds the engine.
// The caller must Close.
func openEnv(opts *RootOptions) (*appEnv, error) {
	cat, err := catalog.Load(opts.CatalogPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	client := opts.Client
	if client == nil {
		if opts.ProviderURL == "" {
			_ = st.Close()
			return nil, NewExitError(ExitCommandError, "provider URL is required (--provider-url or BOOSTD_PROVIDER_URL)")
		}
		client = provider.NewHTTPClient(opts.ProviderURL, opts.APIKey)
	}

	return &appEnv{
		store:  st,
		engine: engine.New(st, client, cat),
	}, nil
}

func (env *appEnv) Close() {
	_ = env.store.Close()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// renderError prints an error in the configured format and converts it to
// an ExitError. Engine errors keep their code; everything else is a
// command error.
func renderError(f *OutputFormatter, err error) error {
	var ee *engine.Error
	if errors.As(err, &ee) {
		_ = f.Error(string(ee.Code), ee.Message)
		return WrapExitError(ExitFailure, string(ee.Code), err)
	}
	_ = f.Error("COMMAND_ERROR", err.Error())
	return WrapExitError(ExitCommandError, "command failed", err)
}

// parseID parses a positional order id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid order id %q", arg))
	}
	return id, nil
}
