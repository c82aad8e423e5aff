package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/model"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	trainType     string
	trainModel    string
	trainTarget   string
	trainOutput   string
	trainTestSize float64
	trainParse    parseFlags
)

var trainCmd = &cobra.Command{
	Use:   "train <file>",
	Short: "Train a regression, classification or clustering model on a dataset",
	Long: `Train a model on the numeric columns of a dataset and report its metrics.

Models:
  regression      linear_regression
  classification  logistic_regression, knn
  clustering      kmeans

Supervised models hold out --test-size of the rows for evaluation. The trained
model is saved as JSON to --output, or to <models_dir>/<type>_<model>.json.
A saved knn model includes its scaled training rows, which it needs to predict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		kind, err := model.ParseKind(trainType)
		if err != nil {
			return err
		}
		target := c.LabelColumn
		if cmd.Flags().Changed("target") {
			target = trainTarget
		}
		testSize := c.TestSize
		if cmd.Flags().Changed("test-size") {
			if trainTestSize <= 0 || trainTestSize >= 1 {
				return fmt.Errorf("--test-size must be in (0, 1)")
			}
			testSize = trainTestSize
		}
		params := model.DefaultParams()
		params.Seed = c.RandomState
		params.Clusters = c.KMeansClusters
		params.Neighbors = c.KNNNeighbors

		ds, err := loadInput(path, trainParse, c)
		if err != nil {
			return err
		}
		res, err := model.Train(ds, model.Options{
			Kind:     kind,
			Name:     trainModel,
			Target:   target,
			TestSize: testSize,
			Params:   params,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Trained %s/%s on %d rows", res.Kind, res.Name, res.TrainRows)
		if res.TestRows > 0 {
			fmt.Printf(" (%d held out)", res.TestRows)
		}
		fmt.Println()
		fmt.Printf("  Features: %s\n", strings.Join(res.Features, ", "))
		if res.DroppedRows > 0 {
			fmt.Printf("⚠ Dropped %d rows with missing values\n", res.DroppedRows)
		}
		keys := make([]string, 0, len(res.Metrics))
		for k := range res.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %.4f\n", k, res.Metrics[k])
		}
		if len(res.Clusters) > 0 {
			fmt.Printf("  cluster sizes: %v\n", res.Clusters)
		}

		var saved string
		if trainOutput != "" {
			if err := utils.WriteJSONFile(trainOutput, res); err != nil {
				return fmt.Errorf("save model: %w", err)
			}
			saved = trainOutput
		} else if saved, err = res.Save(c.ModelsDir); err != nil {
			return err
		}
		fmt.Printf("✓ Saved model to %s\n", saved)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVarP(&trainType, "type", "t", "classification", "model type: regression|classification|clustering")
	trainCmd.Flags().StringVarP(&trainModel, "model", "m", "", "model name (default per type: linear_regression, logistic_regression, kmeans)")
	trainCmd.Flags().StringVar(&trainTarget, "target", "target", "target column for supervised models (default from config)")
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "", "path for the saved model JSON (default: models_dir)")
	trainCmd.Flags().Float64Var(&trainTestSize, "test-size", 0.2, "share of rows held out for evaluation (default from config)")
	addParseFlags(trainCmd, &trainParse)
}
