// Package cli implements the kudo administration commands.
package cli

import (
	"fmt"            // Output formatting
	"io"             // Command output
	"text/tabwriter" // Aligned listings

	"kudo/internal/app"     // Startup phases and wiring
	"kudo/internal/config"  // Environment configuration
	"kudo/internal/domain"  // Transaction types
	"kudo/internal/storage" // Domain operations

	"github.com/spf13/cobra" // Command tree
)

// NewRootCommand builds the kudo command tree writing to out
func NewRootCommand(out io.Writer, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kudo",
		Short:         "Kudo storage administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.AddCommand(newMigrateCommand(out, cfg))
	cmd.AddCommand(newSeedCommand(out, cfg))
	cmd.AddCommand(newBootstrapCommand(out, cfg))
	cmd.AddCommand(newResetCommand(out, cfg))
	cmd.AddCommand(newCategoriesCommand(out, cfg))
	cmd.AddCommand(newTransactionsCommand(out, cfg))
	return cmd
}

// newMigrateCommand runs startup phase one
func newMigrateCommand(out io.Writer, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return withExitCode(err)
			}
			_, err := fmt.Fprintln(out, "schema is up to date")
			return err
		},
	}
}

// newSeedCommand runs startup phase two
func newSeedCommand(out io.Writer, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default users, categories and transactions into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded, err := app.Seed(cmd.Context(), cfg)
			if err != nil {
				return withExitCode(err)
			}
			return printSeeded(out, seeded)
		},
	}
}

// newBootstrapCommand runs both startup phases
func newBootstrapCommand(out io.Writer, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Migrate the schema, then seed the default data if the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded, err := app.Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return withExitCode(err)
			}
			return printSeeded(out, seeded)
		},
	}
}

// printSeeded reports whether seeding wrote anything
func printSeeded(out io.Writer, seeded bool) error {
	_, err := fmt.Fprintf(out, "seeded=%t\n", seeded)
	return err
}

// newResetCommand drops the schema after explicit confirmation
func newResetCommand(out io.Writer, cfg *config.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every kudo table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return usageError("reset drops all data; pass --yes to confirm")
			}
			if err := app.Reset(cmd.Context(), cfg); err != nil {
				return withExitCode(err)
			}
			_, err := fmt.Fprintln(out, "schema dropped")
			return err
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm dropping all tables") // Required to run
	return cmd
}

// listFlags are shared by the listing commands
type listFlags struct {
	login string
	typ   string
}

// register adds --login and --type to cmd
func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.login, "login", "", "Owner login")
	cmd.Flags().StringVar(&f.typ, "type", string(domain.Expense), "Transaction type: income or expense")
	_ = cmd.MarkFlagRequired("login")
}

// withRepository opens the gateway and cache for one command
func withRepository(cmd *cobra.Command, cfg *config.Config, fn func(*storage.Repository) error) error {
	gw, err := app.OpenGateway(cfg)
	if err != nil {
		return withExitCode(err)
	}
	defer gw.Close()
	c, closeCache, err := app.OpenCache(cmd.Context(), cfg)
	if err != nil {
		return withExitCode(err)
	}
	defer closeCache()
	return withExitCode(fn(storage.NewRepository(gw, storage.WithCache(c))))
}

// newCategoriesCommand lists categories through the cache when configured
func newCategoriesCommand(out io.Writer, cfg *config.Config) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:     "categories",
		Short:   "List a user's categories",
		Example: "  kudo categories --login ivan --type expense",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, cfg, func(r *storage.Repository) error {
				categories, err := r.GetCategoriesByUser(cmd.Context(), flags.login, domain.TransactionType(flags.typ))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTYPE")
				for _, c := range categories {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.TransactionType)
				}
				return tw.Flush()
			})
		},
	}

	flags.register(cmd)
	return cmd
}

// newTransactionsCommand lists transactions oldest first
func newTransactionsCommand(out io.Writer, cfg *config.Config) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:     "transactions",
		Short:   "List a user's transactions",
		Example: "  kudo transactions --login petr --type income",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, cfg, func(r *storage.Repository) error {
				transactions, err := r.GetFinancialTransactions(cmd.Context(), flags.login, domain.TransactionType(flags.typ))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tAMOUNT\tCATEGORY")
				for _, tr := range transactions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tr.ID, tr.CreatedAt.Format("2006-01-02 15:04:05"), tr.Amount, tr.CategoryID)
				}
				return tw.Flush()
			})
		},
	}

	flags.register(cmd)
	return cmd
}
