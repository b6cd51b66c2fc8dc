package io

// DataSet iterates over records in batches of at most BatchSize elements.
type DataSet struct {
	Data         []*DataRecord
	BatchSize    int
	currentIndex int
}

func NewDataSet(data []*DataRecord, batchSize int) *DataSet {
	if batchSize < 1 {
		batchSize = 1
	}
	return &DataSet{Data: data, BatchSize: batchSize}
}

func (d *DataSet) Reset() {
	d.currentIndex = 0
}

// Next returns the next batch, or an empty batch once the data is exhausted.
func (d *DataSet) Next() DataBatch {
	batch := make(DataBatch, 0, d.BatchSize)
	for ; d.currentIndex < len(d.Data) && len(batch) < d.BatchSize; d.currentIndex++ {
		batch = append(batch, d.Data[d.currentIndex])
	}
	return batch
}

func (d *DataSet) Size() int {
	return len(d.Data)
}
