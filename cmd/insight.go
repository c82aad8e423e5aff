package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/insight"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	insType       string
	insOutput     string
	insLabel      string
	insComponents int
	insParse      parseFlags
)

var insightCmd = &cobra.Command{
	Use:   "insight <file>",
	Short: "Derive PCA, density clusters, anomalies and feature importance",
	Long: `Compute exploratory insights over the numeric columns of a dataset:
  pca      principal component projection and explained variance
  cluster  DBSCAN density clusters with noise points
  anomaly  rows whose robust z-score (MAD) exceeds the outlier threshold
  feature  importance of each feature against the label
Combine types with commas, or use "all" (default).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		kinds, err := insight.ParseKinds(insType)
		if err != nil {
			return err
		}
		opt := insight.DefaultOptions()
		opt.Label = c.LabelColumn
		opt.Eps = c.DBSCANEps
		opt.MinSamples = c.DBSCANMinSamples
		opt.Threshold = c.OutlierThreshold
		if cmd.Flags().Changed("label") {
			opt.Label = insLabel
		}
		if insComponents > 0 {
			opt.Components = insComponents
		}

		ds, err := loadInput(path, insParse, c)
		if err != nil {
			return err
		}
		res, err := insight.Generate(ds, kinds, opt)
		if err != nil {
			return err
		}

		if insOutput != "" {
			if err := utils.WriteJSONFile(insOutput, res); err != nil {
				return fmt.Errorf("write insights: %w", err)
			}
			fmt.Printf("✓ Wrote insights to %s\n", insOutput)
		}
		fmt.Printf("Insights for %s (%d rows, features: %s)\n", ds.Name, res.Rows, strings.Join(res.Features, ", "))
		if p := res.PCA; p != nil {
			parts := make([]string, len(p.Explained))
			for i, v := range p.Explained {
				parts[i] = fmt.Sprintf("PC%d %.1f%%", i+1, v*100)
			}
			fmt.Printf("  PCA explained variance: %s\n", strings.Join(parts, ", "))
		}
		if cl := res.Clusters; cl != nil {
			fmt.Printf("  DBSCAN: %d clusters, %d noise points, sizes %v\n", cl.Clusters, cl.Noise, cl.Sizes)
		}
		if a := res.Anomalies; a != nil {
			fmt.Printf("  Anomalies: %d rows (%.1f%%, |z|>%.1f)\n", len(a.Flagged), a.Contamination*100, a.Threshold)
		}
		for _, imp := range res.Importance {
			fmt.Printf("  %s: %.4f (%s)\n", imp.Feature, imp.Score, imp.Method)
		}
		for _, n := range res.Notes {
			fmt.Printf("⚠ %s\n", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightCmd)
	insightCmd.Flags().StringVarP(&insType, "type", "t", "all", "insight types: pca,cluster,anomaly,feature or all")
	insightCmd.Flags().StringVarP(&insOutput, "output", "o", "", "write insights as JSON to this path")
	insightCmd.Flags().StringVarP(&insLabel, "label", "l", "target", "label column for feature importance (default from config)")
	insightCmd.Flags().IntVar(&insComponents, "components", 2, "number of principal components")
	addParseFlags(insightCmd, &insParse)
}
