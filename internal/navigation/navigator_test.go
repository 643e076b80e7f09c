package navigation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"coroconcept/internal/concept"
)

var sampleInit = SampleInit{
	Prompt:      "cyberpunk street food stall",
	AspectRatio: concept.AspectPortrait,
	ModelChoice: concept.ModelPro,
}

func TestNavigateToSampleCarriesData(t *testing.T) {
	ctx := context.Background()
	n := NewNavigator(nil)

	st, toast, err := n.NavigateToSample(ctx, sampleInit)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if toast != MsgCopiedToSample {
		t.Fatalf("unexpected toast %q", toast)
	}
	if st.View != ViewSample || st.Sample == nil || *st.Sample != sampleInit {
		t.Fatalf("unexpected state %+v", st)
	}

	// reading does not consume
	for i := 0; i < 2; i++ {
		cur, err := n.Current(ctx)
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if cur.Sample == nil || *cur.Sample != sampleInit {
			t.Fatalf("read #%d lost pending sample: %+v", i, cur)
		}
	}
}

func TestManualSwitchClearsPending(t *testing.T) {
	ctx := context.Background()
	n := NewNavigator(nil)
	_, _, _ = n.NavigateToSample(ctx, sampleInit)

	st, err := n.SwitchTab(ctx, ViewGallery)
	if err != nil {
		t.Fatalf("switch gallery: %v", err)
	}
	if st.View != ViewGallery || st.Sample != nil {
		t.Fatalf("gallery state should not expose sample data: %+v", st)
	}

	st, err = n.SwitchTab(ctx, ViewSample)
	if err != nil {
		t.Fatalf("switch sample: %v", err)
	}
	if st.View != ViewSample || st.Sample != nil {
		t.Fatalf("manual navigation must start with an empty sample form: %+v", st)
	}
}

func TestApplyRejectsUnknownView(t *testing.T) {
	n := NewNavigator(nil)
	if _, err := n.Apply(context.Background(), Message{View: "settings"}); err == nil {
		t.Fatalf("expected error for unknown view")
	}
	st, _ := n.Current(context.Background())
	if st.View != ViewCreate {
		t.Fatalf("failed navigation must not change the view, got %q", st.View)
	}
}

func TestRedisPending(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	p := NewRedisPending(rdb, "coroconcept:sample_init", time.Minute)
	n := NewNavigator(p)

	if _, _, err := n.NavigateToSample(ctx, sampleInit); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	got, err := p.Get(ctx)
	if err != nil || got == nil || *got != sampleInit {
		t.Fatalf("unexpected redis value %+v err=%v", got, err)
	}

	mr.FastForward(2 * time.Minute)
	st, err := n.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if st.Sample != nil {
		t.Fatalf("expected pending sample to expire, got %+v", st.Sample)
	}
}
