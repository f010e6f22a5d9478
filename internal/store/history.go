package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const lastExtractionKey = "extraction:last"

// Extraction records one completed extraction.
type Extraction struct {
	Text   string            `json:"text"`
	Mode   string            `json:"mode"`
	Source string            `json:"source"`
	Result map[string]string `json:"result"`
	At     time.Time         `json:"at"`
}

// History keeps the most recent extraction.
type History struct {
	store Store
	ttl   time.Duration
}

// NewHistory creates a History on s. Entries expire after ttl; zero keeps them.
func NewHistory(s Store, ttl time.Duration) *History {
	return &History{store: s, ttl: ttl}
}

// SaveLast replaces the stored extraction.
func (h *History) SaveLast(ctx context.Context, e Extraction) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode extraction: %w", err)
	}
	return h.store.Set(ctx, lastExtractionKey, data, h.ttl)
}

// Last returns the stored extraction. ok is false when there is none.
func (h *History) Last(ctx context.Context) (Extraction, bool, error) {
	data, err := h.store.Get(ctx, lastExtractionKey)
	if errors.Is(err, ErrNotFound) {
		return Extraction{}, false, nil
	}
	if err != nil {
		return Extraction{}, false, err
	}

	var e Extraction
	if err := json.Unmarshal(data, &e); err != nil {
		return Extraction{}, false, fmt.Errorf("failed to decode extraction: %w", err)
	}
	return e, true, nil
}

// Clear removes the stored extraction.
func (h *History) Clear(ctx context.Context) error {
	return h.store.Delete(ctx, lastExtractionKey)
}
