package study

import "github.com/papercomputeco/studybuddy/pkg/state"

// Pages tracks the PDF page the student is looking at. Zero means no page
// has been selected.
type Pages struct {
	store *state.Store[int]
}

// NewPages creates an empty page tracker.
func NewPages() *Pages {
	return &Pages{store: state.New(0)}
}

// Current returns the selected page and whether one is set.
func (p *Pages) Current() (int, bool) {
	page := p.store.Get()
	return page, page > 0
}

// Set selects page. Non-positive pages are ignored.
func (p *Pages) Set(page int) {
	if page <= 0 {
		return
	}
	p.store.Set(page)
}

// Subscribe registers fn for every page change.
func (p *Pages) Subscribe(fn func(int)) (unsubscribe func()) {
	return p.store.Subscribe(fn)
}
