package navigation

import (
	"context"
	"fmt"
	"sync"

	"coroconcept/internal/concept"
)

type View string

const (
	ViewCreate  View = "create"
	ViewSample  View = "sample"
	ViewGallery View = "gallery"
)

func (v View) Valid() bool {
	switch v {
	case ViewCreate, ViewSample, ViewGallery:
		return true
	}
	return false
}

const MsgCopiedToSample = "Data disalin ke Buat Sample. Silakan upload gambar referensi."

type SampleInit struct {
	Prompt      string              `json:"prompt"`
	AspectRatio concept.AspectRatio `json:"aspectRatio"`
	ModelChoice concept.ModelChoice `json:"modelChoice"`
}

// Message is a navigation request. Sample is only meaningful for ViewSample; nil means the
// sample form starts empty.
type Message struct {
	View   View        `json:"view"`
	Sample *SampleInit `json:"sample,omitempty"`
}

type State struct {
	View   View        `json:"view"`
	Sample *SampleInit `json:"sample,omitempty"`
}

type Navigator struct {
	mu      sync.Mutex
	view    View
	pending PendingStore
}

func NewNavigator(pending PendingStore) *Navigator {
	if pending == nil {
		pending = NewMemoryPending()
	}
	return &Navigator{view: ViewCreate, pending: pending}
}

func (n *Navigator) Apply(ctx context.Context, msg Message) (State, error) {
	if !msg.View.Valid() {
		return State{}, fmt.Errorf("unknown view %q", msg.View)
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if msg.View == ViewSample {
		if msg.Sample == nil {
			if err := n.pending.Clear(ctx); err != nil {
				return State{}, fmt.Errorf("clear pending sample: %w", err)
			}
		} else if err := n.pending.Set(ctx, *msg.Sample); err != nil {
			return State{}, fmt.Errorf("set pending sample: %w", err)
		}
	}
	n.view = msg.View
	return n.stateLocked(ctx)
}

func (n *Navigator) NavigateToSample(ctx context.Context, init SampleInit) (State, string, error) {
	st, err := n.Apply(ctx, Message{View: ViewSample, Sample: &init})
	if err != nil {
		return State{}, "", err
	}
	return st, MsgCopiedToSample, nil
}

// SwitchTab is manual navigation; entering the sample view this way drops stale data.
func (n *Navigator) SwitchTab(ctx context.Context, view View) (State, error) {
	return n.Apply(ctx, Message{View: view})
}

// Current reads the state without consuming the pending sample.
func (n *Navigator) Current(ctx context.Context) (State, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stateLocked(ctx)
}

func (n *Navigator) stateLocked(ctx context.Context) (State, error) {
	st := State{View: n.view}
	if n.view != ViewSample {
		return st, nil
	}
	init, err := n.pending.Get(ctx)
	if err != nil {
		return State{}, fmt.Errorf("get pending sample: %w", err)
	}
	st.Sample = init
	return st, nil
}
