package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	cfgpkg "github.com/KaramelBytes/dataprep-cli/internal/config"
	"github.com/KaramelBytes/dataprep-cli/internal/dataset"
	"github.com/KaramelBytes/dataprep-cli/internal/export"
	"github.com/KaramelBytes/dataprep-cli/internal/loader"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
	"github.com/KaramelBytes/dataprep-cli/internal/preprocess"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

// parseFlags holds the input parsing flags shared by file-reading commands.
type parseFlags struct {
	delimiter string
	decimal   string
	thousands string
	sheet     string
	maxRows   int
}

func addParseFlags(c *cobra.Command, pf *parseFlags) {
	c.Flags().StringVar(&pf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|'")
	c.Flags().StringVar(&pf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted; a column whose commas all group digits in threes, like 1,234, reads them as thousands)")
	c.Flags().StringVar(&pf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().StringVar(&pf.sheet, "sheet", "", "XLSX: sheet name (first sheet if omitted)")
	c.Flags().IntVar(&pf.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
}

// options translates the flags into loader options, applying the configured
// size limit.
func (pf parseFlags) options(c *cfgpkg.Global) (loader.Options, error) {
	var opt loader.Options
	switch pf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", pf.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(pf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", pf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(pf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", pf.thousands)
	}
	opt.Sheet = pf.sheet
	opt.MaxRows = pf.maxRows
	if c != nil && c.MaxFileSizeMB > 0 {
		opt.MaxFileSize = int64(c.MaxFileSizeMB) << 20
	}
	return opt, nil
}

// resolveInput returns path unchanged when it exists or is absolute. A
// relative path that does not exist is looked up under the configured
// data_dir instead.
func resolveInput(path string, c *cfgpkg.Global) string {
	if c == nil || c.DataDir == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	cand := filepath.Join(utils.ExpandHome(c.DataDir), path)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return path
}

// loadInput reads a dataset file with the parsing flags applied. Relative
// paths fall back to the configured data_dir.
func loadInput(path string, pf parseFlags, c *cfgpkg.Global) (*dataset.Dataset, error) {
	path = resolveInput(path, c)
	opt, err := pf.options(c)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ds, err := loader.LoadFile(path, opt)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("file", path).Int("rows", ds.Rows()).Int("cols", ds.Cols()).
		Dur("took", time.Since(start)).Msg("dataset loaded")
	return ds, nil
}

// clientOptions builds HTTP loader options from the configuration.
func clientOptions(c *cfgpkg.Global) loader.ClientOptions {
	opt := loader.DefaultClientOptions()
	if c == nil {
		return opt
	}
	if c.HTTPTimeoutSec > 0 {
		opt.Timeout = time.Duration(c.HTTPTimeoutSec) * time.Second
	}
	if c.RetryMaxAttempts > 0 {
		opt.MaxAttempts = c.RetryMaxAttempts
	}
	if c.RetryBaseDelayMs >= 0 {
		opt.BaseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
	}
	if c.RetryMaxDelayMs > 0 {
		opt.MaxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
	}
	if c.MaxFileSizeMB > 0 {
		opt.MaxBytes = int64(c.MaxFileSizeMB) << 20
	}
	return opt
}

// pipelineOptions reads the preprocessing settings from the configuration.
func pipelineOptions(c *cfgpkg.Global) (preprocess.Options, error) {
	opt := preprocess.DefaultOptions()
	if c == nil {
		return opt, nil
	}
	policy, err := preprocess.ParsePolicy(c.FailurePolicy)
	if err != nil {
		return opt, err
	}
	opt.TopK = c.TopK
	opt.IQRMultiplier = c.IQRMultiplier
	opt.Placeholder = c.MissingPlaceholder
	opt.Policy = policy
	return opt, nil
}

// processedPath names the output of a processed input: the input extension is
// kept when it can be written, otherwise the result is CSV.
func processedPath(input, dir string) string {
	ext := strings.ToLower(filepath.Ext(input))
	if !slices.Contains(export.Formats, ext) {
		ext = ".csv"
	}
	return utils.OutputPath(input, dir, "_processed", ext)
}

// printResult reports a preprocessing run the way the other commands report
// progress.
func printResult(input string, ds *dataset.Dataset, res *preprocess.Result) {
	fmt.Printf("✓ Processed %s: %d rows, %d -> %d columns\n", filepath.Base(input), res.Data.Rows(), ds.Cols(), res.Data.Cols())
	if res.Fallback {
		fmt.Printf("⚠ Preprocessing fell back (%s policy): %v\n", res.Policy, res.Cause)
	}
	if sel := res.Step(preprocess.StepSelect); sel != nil && !sel.Skipped {
		fmt.Printf("  Selected features: %s\n", strings.Join(sel.Columns, ", "))
	}
	for _, n := range res.Notes {
		fmt.Printf("  Note: %s\n", n)
	}
}
