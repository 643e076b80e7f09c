package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"coroconcept/internal/concept"
	"coroconcept/internal/metrics"
	"coroconcept/internal/slot"
)

const SlotName = "coroai_gallery"

type Item struct {
	ID            string              `json:"id"`
	Title         string              `json:"title,omitempty"`
	Prompt        string              `json:"prompt"`
	AspectRatio   concept.AspectRatio `json:"aspectRatio"`
	ModelChoice   concept.ModelChoice `json:"modelChoice"`
	ResultDataURL string              `json:"resultDataUrl"`
	CreatedAt     int64               `json:"createdAt"`
}

func (i Item) Created() time.Time {
	return time.UnixMilli(i.CreatedAt)
}

func (i Item) DisplayTitle() string {
	if i.Title == "" {
		return "Untitled"
	}
	return i.Title
}

// Writers in this process are serialized; writers in other processes sharing the slot can
// overwrite each other.
type Store struct {
	mu      sync.Mutex
	slot    slot.Slot
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type Config struct {
	Slot    slot.Slot
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func NewStore(cfg Config) *Store {
	if cfg.Slot == nil {
		cfg.Slot = slot.NewMemory()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Store{slot: cfg.Slot, logger: cfg.Logger, metrics: m}
}

// List returns the saved items. Unparseable stored data yields an empty list; only a
// failing slot returns an error.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	return s.load(ctx)
}

func (s *Store) Save(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	next := make([]Item, 0, len(items)+1)
	next = append(next, item)
	next = append(next, items...)
	if err := s.write(ctx, next); err != nil {
		return err
	}
	s.metrics.GallerySaves.Inc()
	return nil
}

// Delete removes the item with id. An unknown id leaves the slot untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	next := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	if len(next) == len(items) {
		return nil
	}
	if err := s.write(ctx, next); err != nil {
		return err
	}
	s.metrics.GalleryDeletes.Inc()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Item, bool, error) {
	items, err := s.List(ctx)
	if err != nil {
		return Item{}, false, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

func (s *Store) load(ctx context.Context) ([]Item, error) {
	raw, err := s.slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	if raw == "" {
		return []Item{}, nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.metrics.GalleryCorruptReads.Inc()
		s.logger.Error().Err(err).Int("bytes", len(raw)).Msg("failed to load gallery")
		return []Item{}, nil
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (s *Store) write(ctx context.Context, items []Item) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal gallery: %w", err)
	}
	if err := s.slot.Store(ctx, string(b)); err != nil {
		return fmt.Errorf("store gallery: %w", err)
	}
	return nil
}
