/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/friendsincode/quietd/internal/store"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.xml>",
	Short: "Validate a configuration document",
	Long:  "Parse a configuration XML document (version 1 or 2), apply the standard migration if needed, and report whether the result is valid",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	cfg, err := store.DecodeConfig(file, store.DefaultMigration)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	if !cfg.IsValid() {
		return fmt.Errorf("%s: document parsed but failed validation", args[0])
	}

	fmt.Printf("%s: valid (%d automatic rules", args[0], len(cfg.AutomaticRules))
	if cfg.ManualRule != nil {
		fmt.Print(", manual rule set")
	}
	fmt.Println(")")
	for _, name := range cfg.AutomaticRuleNames() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
