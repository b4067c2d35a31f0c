package fsx

// ancestry is the set of directory identities on the active descent path of
// one traversal. It is owned by a single Walk call and never shared: push on
// descent, pop on ascent. Membership means descending again would recurse
// into an ancestor, i.e. a symlink cycle.
type ancestry struct {
	stack []Identity
	seen  map[Identity]int
}

func newAncestry() *ancestry {
	return &ancestry{seen: make(map[Identity]int)}
}

func (a *ancestry) contains(id Identity) bool {
	return a.seen[id] > 0
}

func (a *ancestry) push(id Identity) {
	a.stack = append(a.stack, id)
	a.seen[id]++
}

func (a *ancestry) pop() {
	last := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	if a.seen[last] <= 1 {
		delete(a.seen, last)
	} else {
		a.seen[last]--
	}
}
