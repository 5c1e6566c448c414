/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/quietd/internal/events"
	"github.com/friendsincode/quietd/internal/models"
	"github.com/friendsincode/quietd/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file.xml>",
	Short: "Import a configuration document into a profile",
	Long:  "Import a configuration XML document (version 1 or 2) into the named profile, creating the profile if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var importProfileName string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importProfileName, "profile", "", "Profile name to import into (required)")
	importCmd.MarkFlagRequired("profile")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := models.Migrate(database); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	ctx := context.Background()
	st := store.New(database, events.NewBus(), zerolog.Nop())

	profile, err := st.EnsureProfile(ctx, importProfileName)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}

	cfg, err := st.ImportXML(ctx, profile.ID, file)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	fmt.Printf("imported %s into profile %q (%d automatic rules)\n",
		args[0], importProfileName, len(cfg.AutomaticRules))
	return nil
}
