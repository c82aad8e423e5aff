package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dataprep-cli/internal/export"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
	"github.com/KaramelBytes/dataprep-cli/internal/preprocess"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	procLabel   string
	procTopK    int
	procIQR     float64
	procPolicy  string
	procOutput  string
	procSummary bool
	procParse   parseFlags
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Impute, clip outliers, scale and select the top-k features of a dataset",
	Long: `Run the preprocessing pipeline over a dataset file:
  1. impute missing values (numeric: column mean, categorical: placeholder)
  2. clip numeric values to [Q1 - k*IQR, Q3 + k*IQR]
  3. standardize numeric features to zero mean and unit variance
  4. keep the top-k numeric features by ANOVA F score against the label

If a step fails, the input is written unchanged (atomic policy) or the output of
the last successful step is written (best-effort policy).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		opt, err := pipelineOptions(c)
		if err != nil {
			return err
		}
		label := c.LabelColumn
		f := cmd.Flags()
		if f.Changed("label") {
			label = procLabel
		}
		if f.Changed("top-k") {
			opt.TopK = procTopK
		}
		if f.Changed("iqr") {
			opt.IQRMultiplier = procIQR
		}
		if f.Changed("policy") {
			if opt.Policy, err = preprocess.ParsePolicy(procPolicy); err != nil {
				return err
			}
		}
		if opt.TopK < 1 {
			return fmt.Errorf("--top-k must be at least 1")
		}
		if opt.IQRMultiplier <= 0 {
			return fmt.Errorf("--iqr must be positive")
		}

		path = resolveInput(path, c)
		ds, err := loadInput(path, procParse, c)
		if err != nil {
			return err
		}
		res, err := preprocess.New(opt).Process(ds, label)
		if err != nil {
			return err
		}
		logging.Info().Str("run_id", res.RunID).Bool("fallback", res.Fallback).Msg("preprocessing finished")

		out := procOutput
		if out == "" {
			out = processedPath(path, "")
		}
		if err := export.WriteFile(res.Data, out); err != nil {
			return err
		}
		printResult(path, ds, res)
		fmt.Printf("✓ Wrote processed data to %s\n", out)
		if procSummary {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVarP(&procLabel, "label", "l", preprocess.DefaultLabel, "label column for feature selection (default from config)")
	processCmd.Flags().IntVarP(&procTopK, "top-k", "k", preprocess.DefaultTopK, "number of features to keep (default from config)")
	processCmd.Flags().Float64Var(&procIQR, "iqr", preprocess.DefaultIQRMultiplier, "IQR multiplier for outlier clipping (default from config)")
	processCmd.Flags().StringVar(&procPolicy, "policy", string(preprocess.PolicyAtomic), "failure policy: atomic|best-effort (default from config)")
	processCmd.Flags().StringVarP(&procOutput, "output", "o", "", "output file (.csv, .xlsx, .json); default <input>_processed.<ext>")
	processCmd.Flags().BoolVar(&procSummary, "summary", false, "print the per-step run summary as JSON")
	addParseFlags(processCmd, &procParse)
}
