// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkpress/internal/database"
)

var seed bool

// migrateCmd applies pending migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply all pending migrations embedded in the binary and print the
resulting schema version.

Examples:
  blogctl migrate          # Apply pending migrations
  blogctl migrate --seed   # Also create the development admin and sample post`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if seed {
			if err := database.Seed(cmd.Context(), db); err != nil {
				return err
			}
		}

		v, err := database.Version(cmd.Context(), db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seed, "seed", false, "Insert development seed data when the tables are empty")
}
