package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tabemb/pkg"
	"tabemb/pkg/config"
)

func BuildCommand() *cobra.Command {
	var dataFile string
	var outputFile string
	var configFile string
	var schemaFile string
	var configOutputFile string
	var overrides config.Config

	var cmd = &cobra.Command{
		Use:   "build -i dataFile -o outputFile [-c configFile]",
		Short: "Creates embedding tables for the categorical columns of the data and saves the model",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			applyOverrides(cmd, cfg, &overrides)
			_, err = pkg.Build(pkg.BuildParameters{
				DataFile:         dataFile,
				OutputFile:       outputFile,
				Config:           cfg,
				SchemaFile:       schemaFile,
				ConfigOutputFile: configOutputFile,
			})
			return err
		},
	}

	cmd.Flags().StringVarP(&dataFile, "data-file", "i", "", "name of data file")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "name of the file to save model to.")
	cmd.Flags().StringVarP(&configFile, "config", "c", "tabemb.yaml", "name of YAML config file (optional)")
	cmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "YAML schema of the categorical columns, used instead of the data's (optional)")
	cmd.Flags().StringVarP(&configOutputFile, "write-config", "", "", "file to save the effective config to (optional)")

	cmd.Flags().StringSliceVarP(&overrides.CategoricalColumns, "categorical-columns", "", nil, "list of columns holding categorical data")
	cmd.Flags().StringSliceVarP(&overrides.MultiValuedColumns, "multi-valued-columns", "", nil, "list of columns holding several categorical values")
	cmd.Flags().StringVarP(&overrides.Separator, "separator", "", "|", "separator of the values of multi-valued columns")
	cmd.Flags().StringVarP(&overrides.Combiner, "combiner", "", "mean", "pooling combiner: mean, sum or sqrtn")
	cmd.Flags().IntVarP(&overrides.DefaultEmbeddingDim, "embedding-dim", "d", 64, "embedding dimension when sizes are not inferred")
	cmd.Flags().BoolVarP(&overrides.InferEmbeddingSizes, "infer-embedding-sizes", "", true, "infer embedding dimensions from column cardinalities")
	cmd.Flags().StringSliceVarP(&overrides.Tags, "tags", "", nil, "only embed columns with any of these tags")
	cmd.Flags().StringSliceVarP(&overrides.TagsToFilter, "tags-to-filter", "", nil, "skip columns with any of these tags")
	cmd.Flags().BoolVarP(&overrides.StrictTables, "strict-tables", "", false, "reject same-named tables with different shapes")
	cmd.Flags().Uint64VarP(&overrides.RandomSeed, "random-seed", "x", 42, "random seed")

	_ = cmd.MarkFlagRequired("data-file")
	_ = cmd.MarkFlagRequired("output-file")

	return cmd
}

// applyOverrides copies the flags set on the command line over the config file values.
func applyOverrides(cmd *cobra.Command, cfg, overrides *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("categorical-columns") {
		cfg.CategoricalColumns = overrides.CategoricalColumns
	}
	if flags.Changed("multi-valued-columns") {
		cfg.MultiValuedColumns = overrides.MultiValuedColumns
	}
	if flags.Changed("separator") {
		cfg.Separator = overrides.Separator
	}
	if flags.Changed("combiner") {
		cfg.Combiner = overrides.Combiner
	}
	if flags.Changed("embedding-dim") {
		cfg.DefaultEmbeddingDim = overrides.DefaultEmbeddingDim
	}
	if flags.Changed("infer-embedding-sizes") {
		cfg.InferEmbeddingSizes = overrides.InferEmbeddingSizes
	}
	if flags.Changed("tags") {
		cfg.Tags = overrides.Tags
	}
	if flags.Changed("tags-to-filter") {
		cfg.TagsToFilter = overrides.TagsToFilter
	}
	if flags.Changed("strict-tables") {
		cfg.StrictTables = overrides.StrictTables
	}
	if flags.Changed("random-seed") {
		cfg.RandomSeed = overrides.RandomSeed
	}
}

func EmbedCommand() *cobra.Command {
	var p pkg.EmbedParameters

	var cmd = &cobra.Command{
		Use:   "embed -m modelFile -i dataFile [-o outputFile]",
		Short: "Computes the pooled embeddings of the categorical columns of the data",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pkg.Embed(p)
		},
	}

	cmd.Flags().StringVarP(&p.ModelFile, "model", "m", "", "name of model to use")
	cmd.Flags().StringVarP(&p.InputFile, "input", "i", "", "name of data input file")
	cmd.Flags().StringVarP(&p.OutputFile, "output", "o", "", "name of output file (optional)")
	cmd.Flags().IntVarP(&p.BatchSize, "batch-size", "b", 16, "batch size")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func InspectCommand() *cobra.Command {
	var p pkg.InspectParameters

	var cmd = &cobra.Command{
		Use:   "inspect -m modelFile [--write-schema schemaFile]",
		Short: "Prints the table and feature configs of a model and its output sizes",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := pkg.Inspect(p)
			return err
		},
	}

	cmd.Flags().StringVarP(&p.ModelFile, "model", "m", "", "name of model to inspect")
	cmd.Flags().IntVarP(&p.BatchSize, "batch-size", "b", 16, "batch size used for output sizes")
	cmd.Flags().StringVarP(&p.SchemaFile, "write-schema", "", "", "file to save the schema of the model's categorical columns to (optional)")

	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func ExportCommand() *cobra.Command {
	var modelFile string
	var dbPath string

	var cmd = &cobra.Command{
		Use:   "export -m modelFile -d storeDir",
		Short: "Writes the embedding of every known category value to a vector store",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pkg.Export(modelFile, dbPath)
		},
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "name of model to export")
	cmd.Flags().StringVarP(&dbPath, "store", "d", "", "directory of the vector store")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func LookupCommand() *cobra.Command {
	var dbPath string
	var feature string

	var cmd = &cobra.Command{
		Use:   "lookup -d storeDir -f feature value...",
		Short: "Prints the stored embedding of category values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, value := range args {
				vec, err := pkg.Lookup(dbPath, feature, value)
				if err != nil {
					return err
				}
				fields := make([]string, len(vec))
				for i, v := range vec {
					fields[i] = fmt.Sprintf("%.5f", v)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s,%s\n", value, strings.Join(fields, ","))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dbPath, "store", "d", "", "directory of the vector store")
	cmd.Flags().StringVarP(&feature, "feature", "f", "", "feature name")

	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("feature")

	return cmd
}

var logLevel string
var logFormat string

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	Main := &cobra.Command{Use: "tabemb", PersistentPreRun: setupLogging, SilenceUsage: true}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", envOr("TABEMB_LOG_LEVEL", "info"), "Logging level: info warn error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", envOr("TABEMB_LOG_FORMAT", "pretty"), "Logging format: pretty or json")

	Main.AddCommand(BuildCommand())
	Main.AddCommand(EmbedCommand())
	Main.AddCommand(InspectCommand())
	Main.AddCommand(ExportCommand())
	Main.AddCommand(LookupCommand())

	if err := Main.Execute(); err != nil {
		panic(err)
	}
}

func setupLogging(cmd *cobra.Command, args []string) {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		panic("Invalid logging level specified")
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		panic("Invalid log format specified")

	}

}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
