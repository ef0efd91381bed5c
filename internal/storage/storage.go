package storage

import "feeScope/internal/model"

// Storage defines a sink for committed fee updates.
type Storage interface {
	PutUpdateBatch(updates []model.FeeUpdateRecord) error
}
