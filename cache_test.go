package vseek

import "testing"

func fakeFrame(n int64) *BestVideoFrame {
	return &BestVideoFrame{Hash: uint64(n) + 1, PTS: n}
}

func TestFrameCacheGetMiss(t *testing.T) {
	c := NewFrameCache(1024)
	if _, ok := c.Get(5); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestFrameCacheRoundTrip(t *testing.T) {
	c := NewFrameCache(1024)
	c.Cache(5, fakeFrame(5), 100)

	got, ok := c.Get(5)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Hash != 6 {
		t.Fatalf("got hash %d, want 6", got.Hash)
	}
}

func TestFrameCacheEvictsUnderBudget(t *testing.T) {
	c := NewFrameCache(250)
	for i := int64(0); i < 5; i++ {
		c.Cache(i, fakeFrame(i), 100)
		if c.TotalSize() > c.maxSize {
			t.Fatalf("total size %d exceeds budget %d after inserting frame %d", c.TotalSize(), c.maxSize, i)
		}
	}
	// Only the most recent entries should survive a 250-byte budget at
	// 100 bytes each.
	if _, ok := c.Get(0); ok {
		t.Fatal("expected frame 0 to have been evicted")
	}
	if _, ok := c.Get(4); !ok {
		t.Fatal("expected frame 4 (most recent) to still be cached")
	}
}

func TestFrameCacheGetTouchesToFront(t *testing.T) {
	c := NewFrameCache(250)
	c.Cache(0, fakeFrame(0), 100)
	c.Cache(1, fakeFrame(1), 100)

	// Touch 0 so it becomes MRU.
	if _, ok := c.Get(0); !ok {
		t.Fatal("expected hit on frame 0")
	}

	c.Cache(2, fakeFrame(2), 100)

	if _, ok := c.Get(1); ok {
		t.Fatal("expected frame 1 (now LRU) to have been evicted")
	}
	if _, ok := c.Get(0); !ok {
		t.Fatal("expected frame 0 to survive eviction after being touched")
	}
}

func TestFrameCacheReplacesExistingEntry(t *testing.T) {
	c := NewFrameCache(1024)
	c.Cache(1, fakeFrame(1), 100)
	c.Cache(1, fakeFrame(1), 50)

	if c.TotalSize() != 50 {
		t.Fatalf("total size %d, want 50 after replacing entry 1", c.TotalSize())
	}
}

func TestFrameCacheSetMaxSizeEvicts(t *testing.T) {
	c := NewFrameCache(1024)
	for i := int64(0); i < 4; i++ {
		c.Cache(i, fakeFrame(i), 100)
	}
	c.SetMaxSize(150)
	if c.TotalSize() > 150 {
		t.Fatalf("total size %d exceeds newly lowered budget 150", c.TotalSize())
	}
}

func TestFrameCacheClear(t *testing.T) {
	c := NewFrameCache(1024)
	c.Cache(0, fakeFrame(0), 100)
	c.Clear()
	if c.TotalSize() != 0 {
		t.Fatalf("total size %d, want 0 after Clear", c.TotalSize())
	}
	if _, ok := c.Get(0); ok {
		t.Fatal("expected miss after Clear")
	}
}
