package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmoore22/boostd/internal/catalog"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate the service catalog",
	}
	cmd.AddCommand(newCatalogValidateCommand(rootOpts))
	return cmd
}

func newCatalogValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a catalog file against the schema",
		Long: `Validate a service catalog YAML file against the embedded CUE schema.
Defaults to the catalog named by --catalog.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			path := rootOpts.CatalogPath
			if len(args) == 1 {
				path = args[0]
			}

			cat, err := catalog.Load(path)
			if err != nil {
				_ = formatter.Error("CATALOG_INVALID", err.Error())
				return WrapExitError(ExitFailure, "catalog validation failed", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(struct {
					Valid        bool   `json:"valid"`
					Currency     string `json:"currency"`
					VoteServices int    `json:"vote_services"`
				}{true, cat.Currency, len(cat.VoteServices)})
			}
			fmt.Fprintf(formatter.Writer, "catalog valid: %d vote service(s), currency %s\n",
				len(cat.VoteServices), cat.Currency)
			return nil
		},
	}
	return cmd
}
