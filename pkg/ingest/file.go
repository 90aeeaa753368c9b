package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// ReadBatchFile decodes one retailer file. The file name becomes the batch
// source when the file does not carry one.
func ReadBatchFile(path string) (*models.ListingBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	batch, err := DecodeBatch(data)
	if err != nil {
		return nil, fmt.Errorf("decode batch file %s: %w", path, err)
	}
	if batch.Source == "" {
		batch.Source = filepath.Base(path)
	}
	return batch, nil
}

// DecodeBatch accepts a bare item array or a {"source","items"} envelope.
func DecodeBatch(data []byte) (*models.ListingBatch, error) {
	var batch models.ListingBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}
