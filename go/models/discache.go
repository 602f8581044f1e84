package models

const DefaultDiscacheSize = 100000

type discacheKey struct {
	addr  uint64
	flags uint32
}

type DiscacheEntry struct {
	key        discacheKey
	Ins        *Decoded
	prev, next *DiscacheEntry
}

// Discache is a fixed-size LRU cache of decoded instructions keyed by (address, flags).
// It is not safe for concurrent use.
type Discache struct {
	dec   Decoder
	size  int
	cache map[discacheKey]*DiscacheEntry
	// root.next is the most recently used entry, root.prev the least
	root DiscacheEntry

	Hits, Misses uint64
}

func NewDiscache(dec Decoder, size int) *Discache {
	if size <= 0 {
		size = DefaultDiscacheSize
	}
	d := &Discache{dec: dec, size: size, cache: make(map[discacheKey]*DiscacheEntry)}
	d.root.prev, d.root.next = &d.root, &d.root
	return d
}

func (d *Discache) unlink(ent *DiscacheEntry) {
	ent.prev.next = ent.next
	ent.next.prev = ent.prev
	ent.prev, ent.next = nil, nil
}

func (d *Discache) pushFront(ent *DiscacheEntry) {
	ent.prev = &d.root
	ent.next = d.root.next
	d.root.next.prev = ent
	d.root.next = ent
}

// Get returns the decoded instruction at (addr, flags), decoding and caching it on a miss.
// Decoder errors are not cached and return ok == false.
func (d *Discache) Get(addr uint64, flags uint32) (*Decoded, bool) {
	key := discacheKey{addr, flags}
	if ent, ok := d.cache[key]; ok {
		d.Hits++
		if d.root.next != ent {
			d.unlink(ent)
			d.pushFront(ent)
		}
		return ent.Ins, true
	}
	d.Misses++
	ins, err := d.dec.Decode(addr, flags)
	if err != nil || ins == nil {
		return nil, false
	}
	if len(d.cache) >= d.size {
		d.evict()
	}
	ent := &DiscacheEntry{key: key, Ins: ins}
	d.cache[key] = ent
	d.pushFront(ent)
	return ins, true
}

// Peek looks up a cached entry without decoding or touching recency.
func (d *Discache) Peek(addr uint64, flags uint32) (*Decoded, bool) {
	if ent, ok := d.cache[discacheKey{addr, flags}]; ok {
		return ent.Ins, true
	}
	return nil, false
}

func (d *Discache) evict() {
	last := d.root.prev
	if last == &d.root {
		return
	}
	d.unlink(last)
	delete(d.cache, last.key)
}

func (d *Discache) Len() int { return len(d.cache) }

// Purge drops every entry, e.g. after code memory was rewritten.
func (d *Discache) Purge() {
	d.cache = make(map[discacheKey]*DiscacheEntry)
	d.root.prev, d.root.next = &d.root, &d.root
}
