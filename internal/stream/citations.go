package stream

import "sort"

// Reference is one numbered entry of the References section.
type Reference struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// citationMap tracks provider-furnished and inline-discovered URLs for one session.
// Indices are unique and handed out in first-seen order from a counter that never
// decreases.
type citationMap struct {
	provider map[int]string // replaced wholesale by every provider list
	inline   map[string]int // URLs found in the text
	next     int
}

func newCitationMap() *citationMap {
	return &citationMap{
		provider: make(map[int]string),
		inline:   make(map[string]int),
		next:     1,
	}
}

// replaceProvider swaps in a new provider list numbered from 1. Inline URLs that
// reappear in the list adopt the provider index. Every other inline URL keeps its index;
// a provider entry whose position is held by one moves to the next free index.
func (c *citationMap) replaceProvider(urls []string) {
	for _, url := range urls {
		delete(c.inline, url)
	}
	held := make(map[int]bool, len(c.inline))
	for _, idx := range c.inline {
		held[idx] = true
	}
	if n := len(urls) + 1; n > c.next {
		c.next = n
	}

	c.provider = make(map[int]string, len(urls))
	for i, url := range urls {
		idx := i + 1
		if held[idx] {
			idx = c.next
			c.next++
		}
		c.provider[idx] = url
	}
}

// index returns the marker index for url, assigning the next one if unseen.
func (c *citationMap) index(url string) int {
	if idx, ok := c.inline[url]; ok {
		return idx
	}
	found := 0
	for idx, u := range c.provider {
		if u == url && (found == 0 || idx < found) {
			found = idx
		}
	}
	if found > 0 {
		return found
	}
	idx := c.next
	c.next++
	c.inline[url] = idx
	return idx
}

// references lists every entry ordered by index.
func (c *citationMap) references() []Reference {
	refs := make([]Reference, 0, len(c.provider)+len(c.inline))
	for idx, url := range c.provider {
		refs = append(refs, Reference{Index: idx, URL: url})
	}
	for url, idx := range c.inline {
		refs = append(refs, Reference{Index: idx, URL: url})
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Index < refs[j].Index
	})
	return refs
}
