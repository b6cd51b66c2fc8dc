package io

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strings"

	"tabemb/pkg/embedding"
	"tabemb/pkg/model"
)

// DataRecord holds the category indexes of one row, one slice per feature in
// Metadata.FeatureNames order. Single-valued features hold exactly one index.
type DataRecord struct {
	Line   int
	Values [][]int
}

type DataBatch []*DataRecord

type void struct{}

var Void = void{}

type Set map[string]void

func NewSet(values ...string) Set {
	set := Set{}
	for _, val := range values {
		set[val] = Void
	}
	return set
}

type DataParameters struct {
	DataFile           string
	CategoricalColumns Set
	MultiValuedColumns Set
	Separator          string
}

type DataError struct {
	Line  int
	Error string
}

// LoadData reads a CSV file with a header line. When metaData is nil a new one is built from the
// data; otherwise values unknown to metaData are mapped to the out-of-vocabulary index.
func LoadData(p DataParameters, metaData *model.Metadata) (*model.Metadata, []*DataRecord, []DataError, error) {
	inputFile, err := os.Open(p.DataFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error opening file: %w", err)
	}
	defer inputFile.Close()
	return ReadData(inputFile, p, metaData)
}

func ReadData(input io.Reader, p DataParameters, metaData *model.Metadata) (*model.Metadata, []*DataRecord, []DataError, error) {
	reader := csv.NewReader(input)
	reader.Comma = ','
	reader.FieldsPerRecord = -1

	//First line is expected to be a header
	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error reading data header: %w", err)
	}

	newMetadata := false
	if metaData == nil {
		metaData = model.NewMetadata()
		newMetadata = true
		metaData.Columns = header
		metaData.Separator = p.Separator
		if err := buildFeatureIndex(p, metaData); err != nil {
			return nil, nil, nil, err
		}
	}
	columns, err := featureColumns(metaData, header)
	if err != nil {
		return nil, nil, nil, err
	}
	features := metaData.FeatureNames()

	var errors []DataError
	var result []*DataRecord
	currentLine := 1
	for record, err := reader.Read(); err != io.EOF; record, err = reader.Read() {
		currentLine++
		if err != nil {
			errors = append(errors, DataError{Line: currentLine, Error: err.Error()})
			continue
		}
		if len(record) != len(header) {
			errors = append(errors, DataError{
				Line:  currentLine,
				Error: fmt.Sprintf("expected %d fields, got %d", len(header), len(record)),
			})
			continue
		}

		values := make([][]int, len(features))
		for i, feature := range features {
			values[i] = parseCategorical(metaData, newMetadata, feature, record[columns[i]])
		}
		result = append(result, &DataRecord{Line: currentLine, Values: values})
	}

	return metaData, result, errors, nil
}

func parseCategorical(metaData *model.Metadata, newMetadata bool, feature, cell string) []int {
	values, ok := metaData.CategoricalValuesMap[feature]
	if !ok {
		values = model.NewNameMap()
		metaData.CategoricalValuesMap[feature] = values
	}

	names := []string{cell}
	if metaData.MultiValued[feature] {
		names = splitCell(cell, metaData.Separator)
	}
	result := make([]int, len(names))
	for i, name := range names {
		if newMetadata {
			result[i] = values.ValueFor(name)
		} else {
			result[i], _ = values.IndexFor(name)
		}
	}
	return result
}

func splitCell(cell, separator string) []string {
	if cell == "" {
		return nil
	}
	if separator == "" {
		return []string{cell}
	}
	parts := strings.Split(cell, separator)
	result := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func buildFeatureIndex(p DataParameters, metaData *model.Metadata) error {
	found := Set{}
	for i, col := range metaData.Columns {
		_, isCategorical := p.CategoricalColumns[col]
		_, isMultiValued := p.MultiValuedColumns[col]
		if !isCategorical && !isMultiValued {
			continue
		}
		metaData.CategoricalFeaturesMap[i] = col
		metaData.MultiValued[col] = isMultiValued
		found[col] = Void
	}
	for _, set := range []Set{p.CategoricalColumns, p.MultiValuedColumns} {
		for col := range set {
			if _, ok := found[col]; !ok {
				return fmt.Errorf("column %s not found in data header", col)
			}
		}
	}
	return nil
}

// featureColumns locates the metadata features in header, which may be ordered differently
// from the data the metadata was built on.
func featureColumns(metaData *model.Metadata, header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	features := metaData.FeatureNames()
	result := make([]int, len(features))
	for i, feature := range features {
		column, ok := index[feature]
		if !ok {
			return nil, fmt.Errorf("column %s not found in data header", feature)
		}
		result[i] = column
	}
	return result, nil
}

// BatchInputs converts a batch into embedding inputs: single-valued features become a dense
// (batch,) tensor, multi-valued ones a bag of values (n, 1) with offsets (batch, 1).
func BatchInputs(batch DataBatch, metaData *model.Metadata) map[string]embedding.Input {
	features := metaData.FeatureNames()
	inputs := make(map[string]embedding.Input, len(features))
	for i, feature := range features {
		if !metaData.MultiValued[feature] {
			indices := make([]int, len(batch))
			for j, record := range batch {
				indices[j] = record.Values[i][0]
			}
			inputs[feature] = embedding.DenseInput(embedding.Vector(indices...))
			continue
		}

		var values []int
		offsets := make([]int, len(batch))
		for j, record := range batch {
			offsets[j] = len(values)
			values = append(values, record.Values[i]...)
		}
		valueTensor, _ := embedding.NewIndices(values, len(values), 1)
		offsetTensor, _ := embedding.NewIndices(offsets, len(offsets), 1)
		inputs[feature] = embedding.BagInput(valueTensor, offsetTensor)
	}
	return inputs
}

// BatchInputSizes is the shape of BatchInputs(batch, metaData).
func BatchInputSizes(batch DataBatch, metaData *model.Metadata) map[string]embedding.InputSize {
	features := metaData.FeatureNames()
	sizes := make(map[string]embedding.InputSize, len(features))
	for i, feature := range features {
		if !metaData.MultiValued[feature] {
			sizes[feature] = embedding.DenseSize(len(batch))
			continue
		}
		n := 0
		for _, record := range batch {
			n += len(record.Values[i])
		}
		sizes[feature] = embedding.BagSize([]int{n, 1}, []int{len(batch), 1})
	}
	return sizes
}

func SaveModel(m *model.Model, writer io.Writer) error {
	encoder := gob.NewEncoder(writer)
	err := encoder.Encode(m.Snapshot())
	if err != nil {
		return fmt.Errorf("error encoding model: %w", err)
	}
	return nil
}

func LoadModel(input io.Reader) (*model.Model, error) {
	decoder := gob.NewDecoder(input)
	snapshot := model.Snapshot{}
	err := decoder.Decode(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("error decoding model: %w", err)
	}
	m, err := model.FromSnapshot(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("error restoring model: %w", err)
	}
	return m, nil
}
