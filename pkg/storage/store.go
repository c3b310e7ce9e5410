// Package storage caches price predictions.
//
// A prediction is a pure function of the request input and the trained model,
// so an answer computed once can be served again for as long as the same model
// is loaded. Entries are keyed by the model version together with the input,
// which keeps a retrained model from ever reading another model's answers.
//
// Two backends are provided:
//   - MemoryStore: process-local map with optional TTL cleanup
//   - RedisStore: shared cache for multi-instance deployments
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Entry is one cached prediction. RawPrice is the model estimate before any
// price floor; readers re-apply their own floor to it.
type Entry struct {
	Key            string    `json:"key"`
	ModelVersion   string    `json:"modelVersion"`
	Color          string    `json:"color"`
	DaysInUse      float64   `json:"daysInUse"`
	RawPrice       float64   `json:"rawPrice"`
	PredictedPrice float64   `json:"predictedPrice"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store is implemented by every cache backend.
type Store interface {
	Put(ctx context.Context, entry Entry) error
	Get(ctx context.Context, key string) (Entry, bool, error)
}

// Key derives the cache key for an input under a given model version.
// The result is a lowercase hex string, safe for any backend.
func Key(modelVersion, color string, daysInUse float64) string {
	h := sha256.New()
	h.Write([]byte(modelVersion))
	h.Write([]byte{0})
	h.Write([]byte(color))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(daysInUse, 'g', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
