package model

import "tabemb/pkg/embedding"

type Model struct {
	MetaData *Metadata
	Features *embedding.Features
}

// Snapshot is the gob-encoded form of a Model.
type Snapshot struct {
	MetaData *Metadata
	Features embedding.Snapshot
}

func (m *Model) Snapshot() *Snapshot {
	return &Snapshot{
		MetaData: m.MetaData,
		Features: m.Features.Snapshot(),
	}
}

func FromSnapshot(s *Snapshot) (*Model, error) {
	features, err := embedding.FromSnapshot(s.Features)
	if err != nil {
		return nil, err
	}
	return &Model{MetaData: s.MetaData, Features: features}, nil
}
