package page

// List is an iterator object over a doubly-linked chain of pages threaded
// through each page's prev/next header fields. It holds the current
// position and reads/writes pages through caller-supplied callbacks so that
// the list never needs to know about files or buffer pools directly.
//
// An empty list is represented by its owner holding page.None instead of a
// *List; callers construct a List only once a head page number is known.
type List struct {
	cur PageNum
	get func(PageNum) *Page
	put func(PageNum, *Page) // called after a page in the chain is mutated
}

// NewList positions a list iterator at page `at`, using get/put to read and
// persist pages as the list is walked and spliced. put may be nil if the
// caller's get already returns a page backed by a buffer-pool frame (so
// mutations are visible without an explicit write-back step).
func NewList(at PageNum, get func(PageNum) *Page, put func(PageNum, *Page)) *List {
	return &List{cur: at, get: get, put: put}
}

// Current returns the page number the iterator is positioned at.
func (l *List) Current() PageNum { return l.cur }

func (l *List) write(pn PageNum, p *Page) {
	if l.put != nil {
		l.put(pn, p)
	}
}

// Next advances to the next page in the chain, returning (None, false) if
// the current page is a singleton (i.e. the list has only one member and
// there is nothing to advance to).
func (l *List) Next() (PageNum, bool) {
	p := l.get(l.cur)
	nxt := p.Next()
	if nxt == l.cur {
		return None, false
	}
	l.cur = nxt
	return l.cur, true
}

// Prev advances to the previous page in the chain.
func (l *List) Prev() (PageNum, bool) {
	p := l.get(l.cur)
	prv := p.Prev()
	if prv == l.cur {
		return None, false
	}
	l.cur = prv
	return l.cur, true
}

// Remove splices the current page out of the chain, resetting its own links
// to point to itself, and returns the new current page (preferring the
// previous neighbour, else the next). ok is false if the list becomes empty.
func (l *List) Remove() (PageNum, bool) {
	cur := l.cur
	curPage := l.get(cur)
	prev := curPage.Prev()
	next := curPage.Next()

	curPage.SetPrev(cur)
	curPage.SetNext(cur)
	l.write(cur, curPage)

	if prev == cur && next == cur {
		// Was the sole member.
		return None, false
	}

	prevPage := l.get(prev)
	prevPage.SetNext(next)
	l.write(prev, prevPage)

	nextPage := l.get(next)
	nextPage.SetPrev(prev)
	l.write(next, nextPage)

	if prev != cur {
		l.cur = prev
	} else {
		l.cur = next
	}
	return l.cur, true
}

// Insert splices page x immediately after the current page.
func (l *List) Insert(x PageNum) {
	cur := l.cur
	curPage := l.get(cur)
	next := curPage.Next()

	xPage := l.get(x)
	xPage.SetPrev(cur)
	xPage.SetNext(next)
	l.write(x, xPage)

	curPage.SetNext(x)
	l.write(cur, curPage)

	nextPage := l.get(next)
	nextPage.SetPrev(x)
	l.write(next, nextPage)
}

// Append attaches a separate singleton chain whose head is `start`
// immediately after the current page; equivalent to Insert for a
// single-page chain but named separately to mirror multi-page attach sites.
func (l *List) Append(start PageNum) {
	l.Insert(start)
}

// Read invokes fn with the current page.
func (l *List) Read(fn func(*Page)) {
	fn(l.get(l.cur))
}

// Modify invokes fn with the current page and writes it back.
func (l *List) Modify(fn func(*Page)) {
	p := l.get(l.cur)
	fn(p)
	l.write(l.cur, p)
}
