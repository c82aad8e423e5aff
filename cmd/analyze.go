package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dataprep-cli/internal/analysis"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaType       string
	anaOutputPath string
	anaSampleRows int
	anaGroupBy    []string
	anaCorrGroups bool
	anaTimeColumn string
	anaOutlierThr float64
	anaBins       int
	anaParse      parseFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a dataset and produce a concise summary",
	Long: `Analyze a dataset file. --type selects the sections:
  stats    per-column summaries (mean, std, quartiles, top values)
  corr     Pearson correlations among numeric columns
  trend    slope per numeric column over the time column, or histograms
  anomaly  robust z-score (MAD) outliers per column and row
  all      everything (default)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		opt, err := analysis.OptionsFor(anaType)
		if err != nil {
			return err
		}
		if anaSampleRows >= 0 {
			opt.SampleRows = anaSampleRows
		}
		opt.GroupBy = anaGroupBy
		opt.CorrPerGroup = anaCorrGroups
		opt.TimeColumn = anaTimeColumn
		opt.OutlierThreshold = c.OutlierThreshold
		opt.ConfidenceLevel = c.ConfidenceLevel
		if cmd.Flags().Changed("outlier-threshold") && anaOutlierThr > 0 {
			opt.OutlierThreshold = anaOutlierThr
		}
		if anaBins > 0 {
			opt.Bins = anaBins
		}

		ds, err := loadInput(path, anaParse, c)
		if err != nil {
			return err
		}
		rep, err := analysis.Analyze(ds, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()

		// Decide where to write: --output path or stdout
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaType, "type", "t", "all", "analysis type: stats|corr|trend|anomaly|all")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaCorrGroups, "corr-per-group", false, "compute correlation pairs within each group (may be slower)")
	analyzeCmd.Flags().StringVar(&anaTimeColumn, "time-column", "", "column used as the time axis for trends (auto-detect if omitted)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (default from config)")
	analyzeCmd.Flags().IntVar(&anaBins, "bins", 10, "histogram bins when no time column is present")
	addParseFlags(analyzeCmd, &anaParse)
}
