// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docsafe/internal/fingerprint"
	"docsafe/internal/patterns"
	"docsafe/internal/store"
	"docsafe/internal/version"
)

func (a *app) backupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, restore and expire document backups",
	}

	create := &cobra.Command{
		Use:   "create DOCUMENT",
		Short: "Copy a document into the backup directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openLedger()
			if err != nil {
				return err
			}
			defer st.Close()
			mgr, err := a.backupManager(st)
			if err != nil {
				return err
			}

			// a fingerprint is recorded when the document can be read
			var fp *fingerprint.Fingerprint
			if lib, err := patterns.New(a.cfg.Patterns.Extra); err == nil {
				if fp, _, err = fingerprint.NewBuilder(lib).BuildFile(cmd.Context(), args[0]); err != nil {
					a.obs.Logger().Warn("backing up without fingerprint", "document", args[0], "error", err)
					fp = nil
				}
			}

			id, err := mgr.Create(cmd.Context(), args[0], fp, uuid.NewString())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	var target string
	rollback := &cobra.Command{
		Use:   "rollback BACKUP_ID",
		Short: "Restore a backup over its original document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openLedger()
			if err != nil {
				return err
			}
			defer st.Close()
			mgr, err := a.backupManager(st)
			if err != nil {
				return err
			}
			if !mgr.Rollback(cmd.Context(), args[0], target) {
				return fmt.Errorf("rollback of %s failed", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
			return nil
		},
	}
	rollback.Flags().StringVar(&target, "target", "", "Restore to this path instead of the original location")

	var days int
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete backups older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openLedger()
			if err != nil {
				return err
			}
			defer st.Close()
			mgr, err := a.backupManager(st)
			if err != nil {
				return err
			}
			retention := a.cfg.Retention()
			if cmd.Flags().Changed("days") {
				retention = time.Duration(days) * 24 * time.Hour
			}
			n, err := mgr.Cleanup(cmd.Context(), retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d backups\n", n)
			return nil
		},
	}
	cleanup.Flags().IntVar(&days, "days", 0, "Retention in days (default from config)")

	list := &cobra.Command{
		Use:   "list [DOCUMENT]",
		Short: "List recorded backups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openLedger()
			if err != nil {
				return err
			}
			defer st.Close()

			var records []store.BackupRecord
			if len(args) == 1 {
				mgr, err := a.backupManager(st)
				if err != nil {
					return err
				}
				records, err = mgr.Backups(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			} else if records, err = st.Backups(cmd.Context()); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), records, func(w io.Writer) {
				for _, r := range records {
					fmt.Fprintf(w, "%s  %s  %s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.OriginalPath)
				}
			})
		},
	}

	cmd.AddCommand(create, rollback, cleanup, list)
	return cmd
}

func (a *app) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [DOCUMENT]",
		Short: "Show the audit trail, for one document or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openLedger()
			if err != nil {
				return err
			}
			defer st.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := st.History(cmd.Context(), path)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), entries, func(w io.Writer) {
				for _, e := range entries {
					status := "ok"
					if !e.Success {
						status = "FAILED"
					}
					fmt.Fprintf(w, "%s  %-18s %-6s %s %s\n",
						e.Timestamp.Format(time.RFC3339), e.Operation, status, e.DocumentPath, e.Details)
				}
			})
		},
	}
}

func (a *app) profilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the configuration profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, name := range a.cfg.ListProfiles() {
				p := a.cfg.GetProfile(name)
				fmt.Fprintf(w, "%-16s %s\n", name, p.Description)
			}
			return nil
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Defaults.Format == "text" {
				fmt.Fprintln(cmd.OutOrStdout(), version.Info())
				return nil
			}
			return a.emit(cmd.OutOrStdout(), version.Full(), nil)
		},
	}
}
