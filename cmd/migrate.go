package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"inventory/database"
	"inventory/logger"

	"github.com/spf13/cobra"
)

var migrateStatusOnly bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Brings the database schema up to date. The server does this on start as
well; use --status to only report the schema version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appConfig.Database.Path
		if !migrateStatusOnly {
			if err := database.Migrate(path); err != nil {
				return err
			}
			logger.Info("Database %s is up to date.", path)
		}

		state, err := database.MigrationStatus(path)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, '\t', 0)
		fmt.Fprintf(w, "DATABASE\t%s\n", path)
		fmt.Fprintf(w, "CURRENT\t%d\n", state.Current)
		fmt.Fprintf(w, "LATEST\t%d\n", state.Latest)
		fmt.Fprintf(w, "DIRTY\t%t\n", state.Dirty)
		fmt.Fprintf(w, "PENDING\t%v\n", state.Pending)
		return w.Flush()
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatusOnly, "status", false, "only print the migration status")
	rootCmd.AddCommand(migrateCmd)
}
