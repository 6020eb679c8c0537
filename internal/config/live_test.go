package config

import "testing"

func TestLiveLoadStore(t *testing.T) {
	live := NewLive(Config{Recall: RecallConfig{TopK: 5}})

	if got := live.Load().Recall.TopK; got != 5 {
		t.Errorf("TopK = %d, want 5", got)
	}

	next := live.Load()
	next.Recall.TopK = 2
	live.Store(next)

	if got := live.Load().Recall.TopK; got != 2 {
		t.Errorf("TopK after swap = %d, want 2", got)
	}
}
