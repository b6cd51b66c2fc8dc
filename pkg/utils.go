package pkg

import (
	"fmt"
	gio "io"
	"os"

	"github.com/rs/zerolog/log"

	"tabemb/pkg/io"
	"tabemb/pkg/model"
)

type NoopWriter struct{}

func (x NoopWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func printDataErrors(errors []io.DataError) {
	for _, err := range errors {
		log.Error().Msgf("Error parsing data at line %d: %s", err.Line, err.Error)
	}
}

func loadModel(modelFileName string) (*model.Model, error) {
	modelFile, err := os.Open(modelFileName)
	if err != nil {
		return nil, fmt.Errorf("error opening model file %s: %w", modelFileName, err)
	}
	defer modelFile.Close()

	m, err := io.LoadModel(modelFile)
	if err != nil {
		return nil, fmt.Errorf("error loading model from file %s: %w", modelFileName, err)
	}
	return m, nil
}

func saveModel(m *model.Model, outputFileName string) error {
	outputFile, err := os.Create(outputFileName)
	if err != nil {
		return fmt.Errorf("error creating output file %s: %w", outputFileName, err)
	}
	defer outputFile.Close()

	if err := io.SaveModel(m, outputFile); err != nil {
		return fmt.Errorf("error saving model to %s: %w", outputFileName, err)
	}
	return nil
}

// openOutput returns a writer on fileName, or a NoopWriter when fileName is empty.
func openOutput(fileName string) (gio.Writer, func(), error) {
	if fileName == "" {
		return NoopWriter{}, func() {}, nil
	}
	outputFile, err := os.Create(fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening output file %s: %w", fileName, err)
	}
	return outputFile, func() { outputFile.Close() }, nil
}
