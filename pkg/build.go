package pkg

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"tabemb/pkg/config"
	"tabemb/pkg/embedding"
	"tabemb/pkg/io"
	"tabemb/pkg/model"
	"tabemb/pkg/schema"
)

var (
	ErrNoFeatures     = errors.New("no categorical column selected")
	ErrSchemaMismatch = errors.New("schema does not match the data")
)

type BuildParameters struct {
	DataFile   string
	OutputFile string
	Config     *config.Config
	// SchemaFile, when set, replaces the column group derived from the data.
	SchemaFile string
	// ConfigOutputFile, when set, receives the effective build configuration.
	ConfigOutputFile string
}

// Build derives the categorical metadata from the data file, creates the embedding tables
// and saves the initialized model.
func Build(p BuildParameters) (*model.Model, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}

	metaData, data, dataErrors, err := io.LoadData(io.DataParameters{
		DataFile:           p.DataFile,
		CategoricalColumns: io.NewSet(cfg.CategoricalColumns...),
		MultiValuedColumns: io.NewSet(cfg.MultiValuedColumns...),
		Separator:          cfg.Separator,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("error reading data: %w", err)
	}
	printDataErrors(dataErrors)
	log.Info().Int("Records", len(data)).Int("Features", len(metaData.FeatureNames())).Msg("Loaded data")

	group := metaData.ColumnGroup(cfg.ColumnTags)
	if p.SchemaFile != "" {
		if cfg.HasExplicitFeatures() {
			return nil, fmt.Errorf("%w: a schema cannot be combined with explicit features", ErrSchemaMismatch)
		}
		if group, err = schema.Load(p.SchemaFile); err != nil {
			return nil, err
		}
		if err := checkSchema(group, metaData); err != nil {
			return nil, err
		}
		log.Info().Str("File", p.SchemaFile).Int("Columns", len(group.Columns)).Msg("Loaded schema")
	}

	features, err := buildFeatures(cfg, metaData, group)
	if err != nil {
		return nil, err
	}
	if features == nil {
		return nil, ErrNoFeatures
	}
	features.Init(cfg.RandomSeed)

	for _, name := range features.TableNames() {
		table, _ := features.Table(name)
		log.Info().Str("Table", name).Msg(table.Config().String())
	}

	m := &model.Model{MetaData: metaData, Features: features}
	if p.OutputFile != "" {
		if err := saveModel(m, p.OutputFile); err != nil {
			return nil, err
		}
		log.Info().Str("File", p.OutputFile).Msg("Saved model")
	}
	if p.ConfigOutputFile != "" {
		if err := config.Save(p.ConfigOutputFile, cfg); err != nil {
			return nil, fmt.Errorf("error saving config to %s: %w", p.ConfigOutputFile, err)
		}
		log.Info().Str("File", p.ConfigOutputFile).Msg("Saved config")
	}
	return m, nil
}

// checkSchema verifies that every schema column is a categorical column of the data and that its
// table is large enough for the values seen in the data.
func checkSchema(group *schema.Group, metaData *model.Metadata) error {
	for _, c := range group.Columns {
		if !metaData.HasFeature(c.Name) {
			return fmt.Errorf("%w: column %s is not a categorical column of the data", ErrSchemaMismatch, c.Name)
		}
		if cardinality := metaData.Cardinality(c.Name); c.Cardinality < cardinality {
			return fmt.Errorf("%w: column %s has cardinality %d, the data needs %d",
				ErrSchemaMismatch, c.Name, c.Cardinality, cardinality)
		}
	}
	return nil
}

func buildFeatures(cfg *config.Config, metaData *model.Metadata, group *schema.Group) (*embedding.Features, error) {
	if !cfg.HasExplicitFeatures() {
		features, err := embedding.FromColumnGroup(group, cfg.FactoryOptions(), cfg.Options()...)
		if err != nil {
			return nil, fmt.Errorf("error building features: %w", err)
		}
		return features, nil
	}

	featureConfig, err := cfg.FeatureConfigs()
	if err != nil {
		return nil, fmt.Errorf("error building features: %w", err)
	}
	for name, feature := range featureConfig {
		if !metaData.HasFeature(name) {
			return nil, fmt.Errorf("feature %s is not a categorical column of the data", name)
		}
		if cardinality := metaData.Cardinality(name); cardinality > feature.Table().VocabularySize() {
			log.Warn().Str("Feature", name).Int("Cardinality", cardinality).
				Int("VocabularySize", feature.Table().VocabularySize()).
				Msg("Feature has more values than its table can embed")
		}
	}
	if len(featureConfig) == 0 {
		return nil, nil
	}
	return embedding.New(featureConfig, cfg.Options()...)
}
