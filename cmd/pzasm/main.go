// Package main implements the pzasm textual-bytecode assembler. It
// parses the textual form, validates it, and emits the normalized text
// (the binary container is written by the runtime-side serializer).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"plasma/internal/pz"
	"plasma/internal/pz/pzasm"
	"plasma/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "pzasm [flags] file.pzt",
	Short: "Plasma textual bytecode assembler",
	Args:  cobra.ExactArgs(1),
	RunE:  assemble,
}

func main() {
	rootCmd.Version = version.Version
	rootCmd.Flags().StringP("output", "o", "", "output path")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pzasm: %v\n", err)
		os.Exit(1)
	}
}

func assemble(cmd *cobra.Command, args []string) error {
	input := args[0]
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		ext := filepath.Ext(input)
		output = input[:len(input)-len(ext)] + ".out.pzt"
	}

	src, err := os.ReadFile(input) // #nosec G304 -- path comes from the CLI
	if err != nil {
		return err
	}
	prog, err := pzasm.Parse(src)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	f, err := os.Create(output) // #nosec G304
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	return pz.Write(f, prog)
}
