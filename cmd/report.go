package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dataprep-cli/internal/analysis"
	"github.com/KaramelBytes/dataprep-cli/internal/insight"
	"github.com/KaramelBytes/dataprep-cli/internal/logging"
	"github.com/KaramelBytes/dataprep-cli/internal/model"
	"github.com/KaramelBytes/dataprep-cli/internal/preprocess"
	"github.com/KaramelBytes/dataprep-cli/internal/report"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	repType     string
	repOutput   string
	repTitle    string
	repProcess  bool
	repModel    string
	repInsights bool
	repParse    parseFlags
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Generate a PDF, HTML, Markdown or CSV report for a dataset",
	Long: `Generate a report with a data summary and the full analysis of a dataset.

Optional sections:
  --process          run the preprocessing pipeline and describe each step
  --model <type>     train a regression, classification or clustering model
  --insights         add PCA, DBSCAN, anomaly and feature importance results

With --type csv the report is the dataset itself (processed when --process is set).
The default output is <report_dir>/<input>_report.<ext>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		ft := c.ReportFormat
		if cmd.Flags().Changed("type") {
			ft = repType
		}
		format, err := report.ParseFormat(ft)
		if err != nil {
			return err
		}

		path = resolveInput(path, c)
		ds, err := loadInput(path, repParse, c)
		if err != nil {
			return err
		}
		doc := report.Build(ds, repTitle)

		if repProcess {
			opt, err := pipelineOptions(c)
			if err != nil {
				return err
			}
			res, err := preprocess.New(opt).Process(ds, c.LabelColumn)
			if err != nil {
				return err
			}
			doc.Preprocess = res
			doc.Data = res.Data
		}

		aopt := analysis.DefaultOptions()
		aopt.OutlierThreshold = c.OutlierThreshold
		aopt.ConfidenceLevel = c.ConfidenceLevel
		if doc.Analysis, err = analysis.Analyze(ds, aopt); err != nil {
			return err
		}

		if repModel != "" {
			kind, err := model.ParseKind(repModel)
			if err != nil {
				return err
			}
			params := model.DefaultParams()
			params.Seed = c.RandomState
			params.Clusters = c.KMeansClusters
			params.Neighbors = c.KNNNeighbors
			res, err := model.Train(ds, model.Options{Kind: kind, Target: c.LabelColumn, TestSize: c.TestSize, Params: params})
			if err != nil {
				// A report without the model section is still useful.
				logging.Warn().Err(err).Str("model", repModel).Msg("model training failed")
				fmt.Printf("⚠ Skipping model results: %v\n", err)
			} else {
				doc.Model = res
			}
		}

		if repInsights {
			opt := insight.DefaultOptions()
			opt.Label = c.LabelColumn
			opt.Eps = c.DBSCANEps
			opt.MinSamples = c.DBSCANMinSamples
			opt.Threshold = c.OutlierThreshold
			if doc.Insights, err = insight.Generate(ds, insight.AllKinds, opt); err != nil {
				return err
			}
		}

		out := repOutput
		if out == "" {
			out = utils.OutputPath(path, utils.ExpandHome(c.ReportDir), "_report", format.Ext())
		}
		if err := doc.WriteFile(out, format); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s report to %s\n", format, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&repType, "type", "t", "pdf", "report format: pdf|html|md|csv (default from config)")
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "report path (default <report_dir>/<input>_report.<ext>)")
	reportCmd.Flags().StringVar(&repTitle, "title", report.DefaultTitle, "report title")
	reportCmd.Flags().BoolVar(&repProcess, "process", false, "include a preprocessing run")
	reportCmd.Flags().StringVar(&repModel, "model", "", "include a trained model: regression|classification|clustering")
	reportCmd.Flags().BoolVar(&repInsights, "insights", false, "include PCA, clustering, anomaly and feature importance insights")
	addParseFlags(reportCmd, &repParse)
}
