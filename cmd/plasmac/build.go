package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"plasma/internal/driver"
	"plasma/internal/diag"
	"plasma/internal/project"
	"plasma/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [file...]",
	Short: "Compile Plasma source files to bytecode",
	Long: `Compile each source file into its textual bytecode form. With no
arguments the entry file from plasma.toml is built.`,
	RunE: buildExecution,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "output path (single input only)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	maxDiags, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		manifest, found, merr := project.Load(".")
		if merr != nil {
			return merr
		}
		if !found {
			return fmt.Errorf("no input files and no %s in the current directory", project.ManifestName)
		}
		paths = []string{manifest.EntryPath()}
		if output == "" {
			output = manifest.OutputPath()
		}
		if manifest.Config.Build.MaxDiagnostics > 0 {
			maxDiags = manifest.Config.Build.MaxDiagnostics
		}
		if manifest.Config.Build.NoCache {
			noCache = true
		}
	}
	if output != "" && len(paths) > 1 {
		return fmt.Errorf("--output requires a single input file")
	}

	var cache *driver.DiskCache
	if !noCache {
		cache, _ = driver.OpenDiskCache("plasmac") //nolint:errcheck // no cache is not fatal
	}

	opts := driver.Options{MaxDiagnostics: maxDiags}
	results := driver.BuildAll(paths, opts, cache)

	exit := 0
	statuses := make([]ui.FileStatus, 0, len(results))
	for _, res := range results {
		res.Bag.Sort()
		res.Bag.Dedup()
		diag.Render(os.Stderr, res.FileSet, res.Bag)
		if code := res.ExitCode(); code > exit {
			exit = code
		}
		statuses = append(statuses, ui.FileStatus{
			Path:     res.Path,
			Errors:   res.Bag.Len(),
			Internal: res.Bag.HasInternal(),
			Cached:   res.FileSet == nil,
		})
		if res.Text == nil {
			continue
		}
		out := output
		if out == "" {
			out = outputFor(res.Path)
		}
		if werr := os.WriteFile(out, res.Text, 0o644); werr != nil { // #nosec G306 -- build artifact
			return werr
		}
	}
	fmt.Fprint(os.Stdout, ui.RenderSummary(statuses))
	if exit != 0 {
		os.Exit(exit)
	}
	return nil
}

func outputFor(path string) string {
	ext := filepath.Ext(path)
	if ext == "" || !strings.EqualFold(ext, ".p") {
		return path + ".pzt"
	}
	return path[:len(path)-len(ext)] + ".pzt"
}
