package pkg

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"tabemb/pkg/model"
	"tabemb/pkg/store"
)

// OutOfVocabularyKey is the store key of the out-of-vocabulary row.
const OutOfVocabularyKey = "<oov>"

// Export writes every embedding row of the model to the store at dbPath, keyed by feature and
// category value. Features sharing a table get the same vectors under their own names.
func Export(modelFileName, dbPath string) error {
	m, err := loadModel(modelFileName)
	if err != nil {
		return err
	}
	s, err := store.Open(store.Options{Path: dbPath})
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := exportModel(m, s)
	if err != nil {
		return err
	}
	log.Info().Int("Vectors", count).Str("Store", dbPath).Msg("Exported embeddings")
	return nil
}

func exportModel(m *model.Model, s *store.Store) (int, error) {
	w := s.NewWriter()
	count, err := writeVectors(m, w)
	if err != nil {
		w.Cancel()
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("error flushing store: %w", err)
	}
	return count, nil
}

func writeVectors(m *model.Model, w *store.Writer) (int, error) {
	count := 0
	for _, name := range m.Features.FeatureNames() {
		tableName := m.Features.FeatureConfig()[name].Table().Name()
		table, ok := m.Features.Table(tableName)
		if !ok {
			return 0, fmt.Errorf("no table %q for feature %s", tableName, name)
		}

		keys := map[int]string{model.OutOfVocabulary: OutOfVocabularyKey}
		if values, ok := m.MetaData.CategoricalValuesMap[name]; ok {
			for index, value := range values.IndexToName {
				keys[index] = value
			}
		}
		for index, key := range keys {
			vec, err := table.Vector(index)
			if err != nil {
				log.Warn().Str("Feature", name).Str("Value", key).Err(err).Msg("Value has no embedding row")
				continue
			}
			if err := w.Put(name, key, vec); err != nil {
				return 0, fmt.Errorf("error writing %s/%s: %w", name, key, err)
			}
			count++
		}
	}
	return count, nil
}

// Lookup reads the vector of value for feature from the store at dbPath.
func Lookup(dbPath, feature, value string) ([]float32, error) {
	s, err := store.Open(store.Options{Path: dbPath, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Get(feature, value)
}
