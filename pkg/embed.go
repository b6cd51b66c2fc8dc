package pkg

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"tabemb/pkg/io"
	"tabemb/pkg/model"
)

type EmbedParameters struct {
	ModelFile  string
	InputFile  string
	OutputFile string
	BatchSize  int
}

// Embed computes the pooled embeddings of every record of the input file and writes them as
// CSV: the record line followed by the feature vectors concatenated in feature name order.
func Embed(p EmbedParameters) error {
	m, err := loadModel(p.ModelFile)
	if err != nil {
		return err
	}
	_, data, dataErrors, err := io.LoadData(io.DataParameters{DataFile: p.InputFile}, m.MetaData)
	if err != nil {
		return fmt.Errorf("error loading data from %s: %w", p.InputFile, err)
	}
	printDataErrors(dataErrors)
	if len(data) == 0 {
		return fmt.Errorf("no data to embed in %s", p.InputFile)
	}

	output, closeOutput, err := openOutput(p.OutputFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := csv.NewWriter(output)
	e := newEmbedder(m)
	if err := writer.Write(e.header()); err != nil {
		return err
	}

	ds := io.NewDataSet(data, p.BatchSize)
	for batch := ds.Next(); len(batch) > 0; batch = ds.Next() {
		rows, err := e.embedBatch(batch)
		if err != nil {
			return err
		}
		if err := writer.WriteAll(rows); err != nil {
			return fmt.Errorf("error writing embeddings: %w", err)
		}
	}
	e.logMetrics()
	log.Info().Int("Records", ds.Size()).Msg("Embedded data")
	return nil
}

type embedder struct {
	model    *model.Model
	features []string
	values   map[string][]float64
}

func newEmbedder(m *model.Model) *embedder {
	return &embedder{
		model:    m,
		features: m.Features.FeatureNames(),
		values:   map[string][]float64{},
	}
}

func (e *embedder) header() []string {
	header := []string{"line"}
	for _, name := range e.features {
		dim := e.model.Features.FeatureConfig()[name].Table().Dim()
		for i := 0; i < dim; i++ {
			header = append(header, name+"_"+strconv.Itoa(i))
		}
	}
	return header
}

// embedBatch runs the forward pass of one batch and formats one CSV row per record.
func (e *embedder) embedBatch(batch io.DataBatch) ([][]string, error) {
	g := ag.NewGraph()
	defer g.Clear()

	inputs := io.BatchInputs(batch, e.model.MetaData)
	sizes, err := e.model.Features.ForwardOutputSize(io.BatchInputSizes(batch, e.model.MetaData))
	if err != nil {
		return nil, err
	}
	log.Debug().Interface("Sizes", sizes).Msg("Forward output size")

	embedded, err := e.model.Features.Forward(g, inputs)
	if err != nil {
		return nil, fmt.Errorf("error embedding batch at line %d: %w", batch[0].Line, err)
	}

	rows := make([][]string, len(batch))
	for i, record := range batch {
		rows[i] = []string{strconv.Itoa(record.Line)}
	}
	for _, name := range e.features {
		nodes, ok := embedded[name]
		if !ok {
			return nil, fmt.Errorf("feature %s is missing from the input data", name)
		}
		for i, node := range nodes {
			for _, v := range node.Value().Data() {
				rows[i] = append(rows[i], strconv.FormatFloat(float64(v), 'f', 5, 32))
				e.values[name] = append(e.values[name], float64(v))
			}
		}
	}
	return rows, nil
}

func (e *embedder) logMetrics() {
	for _, name := range e.features {
		mean, std := stat.MeanStdDev(e.values[name], nil)
		log.Info().Str("Feature", name).Float64("Mean", mean).Float64("StdDev", std).Msg("")
	}
}
