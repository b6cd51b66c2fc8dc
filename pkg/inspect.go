package pkg

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"tabemb/pkg/embedding"
	"tabemb/pkg/schema"
)

type InspectParameters struct {
	ModelFile string
	BatchSize int
	// SchemaFile, when set, receives the column group of the model's categorical data.
	SchemaFile string
}

// Inspect logs the tables and features of a model and the output shape of a batch of
// BatchSize records.
func Inspect(p InspectParameters) (map[string][]int, error) {
	m, err := loadModel(p.ModelFile)
	if err != nil {
		return nil, err
	}

	for _, name := range m.Features.TableNames() {
		table, _ := m.Features.Table(name)
		log.Info().Str("Table", name).Msg(table.Config().String())
	}
	inputSizes := map[string]embedding.InputSize{}
	for _, name := range m.Features.FeatureNames() {
		feature := m.Features.FeatureConfig()[name]
		log.Info().Str("Feature", name).Msg(feature.String())
		inputSizes[name] = embedding.DenseSize(p.BatchSize)
	}

	sizes, err := m.Features.ForwardOutputSize(inputSizes)
	if err != nil {
		return nil, err
	}
	for _, name := range m.Features.FeatureNames() {
		log.Info().Str("Feature", name).Ints("OutputSize", sizes[name]).Msg("")
	}
	log.Info().Int("OutputDim", m.Features.OutputDim()).Msg("")

	if p.SchemaFile != "" {
		if err := schema.Save(p.SchemaFile, m.MetaData.ColumnGroup(nil)); err != nil {
			return nil, fmt.Errorf("error writing schema to %s: %w", p.SchemaFile, err)
		}
		log.Info().Str("File", p.SchemaFile).Msg("Saved schema")
	}
	return sizes, nil
}
