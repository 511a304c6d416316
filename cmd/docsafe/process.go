// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docsafe/internal/backup"
	"docsafe/internal/core"
	"docsafe/internal/formatters"
	"docsafe/internal/progress"
)

type processFlags struct {
	prior    string
	block    bool
	strategy string
}

func (a *app) formatCommand() *cobra.Command {
	var pf processFlags
	cmd := &cobra.Command{
		Use:   "format INPUT OUTPUT",
		Short: "Restyle a document into .docx or .html and verify the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.process(cmd, args[0], args[1], pf, nil)
		},
	}
	addProcessFlags(cmd, &pf)
	return cmd
}

func (a *app) batchCommand() *cobra.Command {
	var (
		pf           processFlags
		progressFile string
		restart      bool
	)
	cmd := &cobra.Command{
		Use:   "batch INPUT OUTPUT",
		Short: "Format a long document with resumable progress",
		Long:  "batch classifies paragraph by paragraph, saving progress as it goes. An interrupted run picks up where it stopped when started again on the same content.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if progressFile == "" {
				progressFile = a.cfg.Batch.ProgressFile
			}
			ps := progress.NewStore(progressFile)
			if restart {
				if err := ps.Clear(); err != nil {
					return err
				}
			}
			return a.process(cmd, args[0], args[1], pf, ps)
		},
	}
	addProcessFlags(cmd, &pf)
	cmd.Flags().StringVar(&progressFile, "progress-file", "", "Progress snapshot path (default from config)")
	cmd.Flags().BoolVar(&restart, "restart", false, "Discard saved progress before starting")
	return cmd
}

func (a *app) assessCommand() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "assess INPUT",
		Short: "Classify and report on a document without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.process(cmd, args[0], "", processFlags{strategy: strategy}, nil)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "Classifier strategy: rule, pattern or llm")
	return cmd
}

func addProcessFlags(cmd *cobra.Command, pf *processFlags) {
	cmd.Flags().StringVar(&pf.prior, "prior", "", "Fingerprint of an earlier version whose numbers must survive")
	cmd.Flags().BoolVar(&pf.block, "block", false, "Discard the output when it fails validation")
	cmd.Flags().StringVar(&pf.strategy, "strategy", "", "Classifier strategy: rule, pattern or llm")
}

func (a *app) process(cmd *cobra.Command, input, output string, pf processFlags, ps *progress.Store) error {
	if pf.strategy != "" {
		a.cfg.Defaults.Strategy = pf.strategy
	}
	ctx := cmd.Context()

	st, err := a.openStore()
	if err != nil {
		return err
	}
	var mgr *backup.Manager
	if st != nil {
		defer st.Close()
		if output != "" {
			if mgr, err = a.backupManager(st); err != nil {
				return err
			}
		}
	}

	res, err := core.Process(ctx, core.ProcessConfig{
		InputPath:               input,
		OutputPath:              output,
		PriorFingerprint:        pf.prior,
		BlockOnIntegrityFailure: pf.block,
		Config:                  a.cfg,
		Store:                   st,
		Backups:                 mgr,
		Progress:                ps,
		Observer:                a.obs,
	})
	if res != nil && (err == nil || errors.Is(err, core.ErrIntegrity)) {
		out, ferr := formatters.Export(a.cfg.Defaults.Format, res, a.formatterOptions())
		if ferr != nil {
			return ferr
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	}
	switch {
	case errors.Is(err, core.ErrIntegrity):
		return fmt.Errorf("%w: %v", errValidation, err)
	case err != nil:
		return err
	case output != "" && !res.Valid():
		return errValidation
	}
	return nil
}
