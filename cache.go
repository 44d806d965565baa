package vseek

import "container/list"

// cacheEntry is the payload stored at each list.Element.
type cacheEntry struct {
	frameNumber int64
	frame       *BestVideoFrame
	size        int64
}

// FrameCache is an LRU cache of owned decoded frames, keyed by frame
// number. Get never hands out the cached instance: callers receive a
// cheap reference-counted clone.
type FrameCache struct {
	maxSize   int64
	totalSize int64

	ll    *list.List
	index map[int64]*list.Element
}

// NewFrameCache creates an empty cache with the given byte budget.
func NewFrameCache(maxSize int64) *FrameCache {
	return &FrameCache{
		maxSize: maxSize,
		ll:      list.New(),
		index:   make(map[int64]*list.Element),
	}
}

// SetMaxSize updates the byte budget, evicting from the tail until the
// cache fits.
func (c *FrameCache) SetMaxSize(bytes int64) {
	c.maxSize = bytes
	c.evictToBudget()
}

// Cache inserts frame under frameNumber at the head, evicting the previous
// entry for that frame number first if present, then evicting from the
// tail while over budget.
func (c *FrameCache) Cache(frameNumber int64, frame *BestVideoFrame, size int64) {
	if el, ok := c.index[frameNumber]; ok {
		c.removeElement(el)
	}

	el := c.ll.PushFront(&cacheEntry{frameNumber: frameNumber, frame: frame, size: size})
	c.index[frameNumber] = el
	c.totalSize += size

	c.evictToBudget()
}

// Get returns a clone of the cached frame for frameNumber, touching it to
// the head, or (nil, false) on a miss.
func (c *FrameCache) Get(frameNumber int64) (*BestVideoFrame, bool) {
	el, ok := c.index[frameNumber]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return entry.frame.clone(), true
}

// Clear drops all entries, releasing their owned frames.
func (c *FrameCache) Clear() {
	for el := c.ll.Front(); el != nil; el = el.Next() {
		el.Value.(*cacheEntry).frame.Release()
	}
	c.ll = list.New()
	c.index = make(map[int64]*list.Element)
	c.totalSize = 0
}

// TotalSize returns the current total byte size of all cached frames.
func (c *FrameCache) TotalSize() int64 { return c.totalSize }

func (c *FrameCache) evictToBudget() {
	for c.totalSize > c.maxSize {
		tail := c.ll.Back()
		if tail == nil {
			return
		}
		c.removeElement(tail)
	}
}

func (c *FrameCache) removeElement(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.ll.Remove(el)
	delete(c.index, entry.frameNumber)
	c.totalSize -= entry.size
	entry.frame.Release()
}
