package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KaramelBytes/dataprep-cli/internal/export"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
	"github.com/KaramelBytes/dataprep-cli/internal/preprocess"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	pbOutDir  string
	pbLabel   string
	pbPolicy  string
	pbWorkers int
	pbQuiet   bool
	pbParse   parseFlags
)

var processBatchCmd = &cobra.Command{
	Use:   "process-batch <files...>",
	Short: "Preprocess multiple CSV/TSV/XLSX/JSON files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		files := expandInputs(args, utils.ExpandHome(c.DataDir))
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := pipelineOptions(c)
		if err != nil {
			return err
		}
		label := c.LabelColumn
		if cmd.Flags().Changed("label") {
			label = pbLabel
		}
		if cmd.Flags().Changed("policy") {
			if opt.Policy, err = preprocess.ParsePolicy(pbPolicy); err != nil {
				return err
			}
		}
		if pbWorkers < 1 {
			pbWorkers = 1
		}
		pipe := preprocess.New(opt)
		outputs := batchOutputs(files, pbOutDir)

		// stdout is shared by the workers
		var mu sync.Mutex
		var fallbacks int
		total := len(files)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(pbWorkers)
		for i, path := range files {
			out := outputs[i]
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if !pbQuiet {
					mu.Lock()
					fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
					mu.Unlock()
				}
				ds, err := loadInput(path, pbParse, c)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				res, err := pipe.Process(ds, label)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := export.WriteFile(res.Data, out); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				logging.Debug().Str("file", path).Str("output", out).Str("run_id", res.RunID).Msg("batch item done")

				mu.Lock()
				defer mu.Unlock()
				if res.Fallback {
					fallbacks++
				}
				if !pbQuiet {
					printResult(path, ds, res)
					fmt.Printf("✓ Wrote %s\n", out)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if !pbQuiet {
			fmt.Printf("✓ Processed %d files", total)
			if fallbacks > 0 {
				fmt.Printf(" (%d fell back)", fallbacks)
			}
			fmt.Println()
		}
		return nil
	},
}

// expandInputs resolves glob patterns and literal paths, dropping duplicates,
// in sorted order. Relative patterns that match nothing are retried under
// dataDir.
func expandInputs(args []string, dataDir string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches := globInput(arg)
		if len(matches) == 0 && dataDir != "" && !filepath.IsAbs(arg) {
			matches = globInput(filepath.Join(dataDir, arg))
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// globInput expands a glob, treating a non-pattern as a literal path if it exists.
func globInput(arg string) []string {
	matches, _ := filepath.Glob(arg)
	if len(matches) == 0 {
		if _, err := os.Stat(arg); err == nil {
			matches = []string{arg}
		}
	}
	return matches
}

// batchOutputs assigns an output path per input. Inputs that share a base
// name in one output directory get a __N suffix instead of overwriting each
// other.
func batchOutputs(files []string, dir string) []string {
	out := make([]string, len(files))
	used := map[string]struct{}{}
	for i, path := range files {
		cand := processedPath(path, dir)
		if _, dup := used[cand]; dup {
			ext := filepath.Ext(cand)
			stem := strings.TrimSuffix(cand, ext)
			for idx := 2; ; idx++ {
				next := fmt.Sprintf("%s__%d%s", stem, idx, ext)
				if _, taken := used[next]; !taken {
					if !pbQuiet {
						fmt.Printf("⚠ Duplicate output name, writing %s to %s to avoid overwrite.\n", path, filepath.Base(next))
					}
					cand = next
					break
				}
			}
		}
		used[cand] = struct{}{}
		out[i] = cand
	}
	return out
}

func init() {
	rootCmd.AddCommand(processBatchCmd)
	processBatchCmd.Flags().StringVar(&pbOutDir, "out-dir", "", "directory for processed files (default: next to each input)")
	processBatchCmd.Flags().StringVarP(&pbLabel, "label", "l", preprocess.DefaultLabel, "label column for feature selection (default from config)")
	processBatchCmd.Flags().StringVar(&pbPolicy, "policy", string(preprocess.PolicyAtomic), "failure policy: atomic|best-effort (default from config)")
	processBatchCmd.Flags().IntVarP(&pbWorkers, "workers", "w", 1, "number of files processed concurrently")
	processBatchCmd.Flags().BoolVar(&pbQuiet, "quiet", false, "suppress progress and non-essential output")
	addParseFlags(processBatchCmd, &pbParse)
}
