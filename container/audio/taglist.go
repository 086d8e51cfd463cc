/*
NAME
  taglist.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package audio

import "sync"

// APICKey is the special tag key every muxer's image-mode policy
// inspects: its value carries a FLAC-style picture-block descriptor
// rather than plain UTF-8 text.
const APICKey = "APIC"

// Tag is one (key, value, priority, order) tuple. Priority is used by
// muxers that must drop low-value tags under a size cap (none of the
// muxers in this module currently do, but the field is retained since
// every wire format here reserves space for it implicitly through
// ordering); Order is the tuple's position at insertion time.
type Tag struct {
	Key      string
	Value    []byte
	Priority int
	Order    int
}

// TagList is an ordered sequence of Tags. Order is preserved because
// Ogg comment-block emission and ID3 frame emission are both
// order-sensitive. Safe for concurrent readers; callers must still
// serialise calls to the same Muxer per the concurrency model.
type TagList struct {
	mu   sync.RWMutex
	tags []Tag
}

// NewTagList returns an empty TagList.
func NewTagList() *TagList {
	return &TagList{}
}

// Add appends a tag, or updates the value and priority of an existing
// tag with the same key, preserving its original order.
func (t *TagList) Add(key string, value []byte, priority int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.tags {
		if t.tags[i].Key == key {
			t.tags[i].Value = value
			t.tags[i].Priority = priority
			return
		}
	}
	t.tags = append(t.tags, Tag{Key: key, Value: value, Priority: priority, Order: len(t.tags)})
}

// AddString is a convenience wrapper over Add for UTF-8 text values.
func (t *TagList) AddString(key, value string) {
	t.Add(key, []byte(value), 0)
}

// Get returns the first tag with the given key.
func (t *TagList) Get(key string) (Tag, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tg := range t.tags {
		if tg.Key == key {
			return tg, true
		}
	}
	return Tag{}, false
}

// All returns a copy of the tag list in insertion order.
func (t *TagList) All() []Tag {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cpy := make([]Tag, len(t.tags))
	copy(cpy, t.tags)
	return cpy
}

// Len returns the number of tags.
func (t *TagList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tags)
}

// Delete removes the tag with the given key, if present.
func (t *TagList) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, tg := range t.tags {
		if tg.Key == key {
			t.tags = append(t.tags[:i], t.tags[i+1:]...)
			return
		}
	}
}

// Picture is the decoded form of a tag whose key is APICKey: a
// FLAC-style picture-block descriptor as laid out in the FLAC format
// specification (used identically by ID3 APIC conversion and by the
// Ogg/FLAC PICTURE metadata block).
type Picture struct {
	Type        uint32
	MIME        string
	Description string
	Width       uint32
	Height      uint32
	Depth       uint32
	Colors      uint32
	Data        []byte
}
