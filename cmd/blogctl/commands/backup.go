// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package commands

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"inkpress/internal/backup"
	"inkpress/internal/storage"
)

// backupCmd groups the backup subcommands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up blog content to S3-compatible storage",
	Long: `Write a gzipped JSON snapshot of all posts, categories and comments to
the S3_BUCKET bucket, then keep only the newest BACKUP_KEEP snapshots.

Subcommands:
  run   - Take a snapshot now (default)
  list  - Show stored snapshots`,
	RunE: runBackup,
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Take a snapshot now",
	RunE:  runBackup,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := storageClient()
		if err != nil {
			return err
		}

		objects, err := client.List(cmd.Context(), backup.KeyPrefix)
		if err != nil {
			return err
		}
		sort.Slice(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
		for _, o := range objects {
			fmt.Fprintf(w, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	backupCmd.AddCommand(backupRunCmd, backupListCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	client, err := storageClient()
	if err != nil {
		return err
	}

	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	svc := backup.New(backup.DBSource{DB: db}, client, cfg.BackupKeep)
	key, err := svc.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s to %s\n", key, client.Bucket())
	return nil
}

func storageClient() (*storage.Client, error) {
	if !cfg.S3Enabled() {
		return nil, errors.New("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY must be set")
	}
	return storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
}
