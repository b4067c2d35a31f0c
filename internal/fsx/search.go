package fsx

import (
	"context"
	"strings"
)

// DefaultSearchCap bounds a search when SearchOptions.Cap is zero.
const DefaultSearchCap = 1000

// SearchOptions configures one search invocation.
type SearchOptions struct {
	// Needle is matched as a case-folded substring of each entry name.
	Needle string
	// Cap stops the search after this many matches; 0 means DefaultSearchCap.
	Cap int
	// Walk carries traversal configuration (depth, symlink policy, debug).
	Walk WalkOptions
}

// SearchResult is the outcome of one search: matches are root-relative paths
// in visit order, at most Cap of them. Truncated means the cap was hit and
// remaining subtrees were pruned; Partial means the search was cancelled.
type SearchResult struct {
	Matches   []string
	Truncated bool
	Partial   bool
	Errors    []PathError
}

// Search finds entries under root whose name contains the needle,
// case-insensitively. Matching operates on a folded copy of the name, but
// only as a yes/no test: no offset computed against the folded copy is ever
// used to slice the original. Hitting the cap stops the entire traversal,
// pruning unvisited subtrees rather than merely ceasing to count. Cyclic or
// over-deep branches contribute zero matches and are abandoned like any
// other diagnosed branch.
func Search(ctx context.Context, root string, opts SearchOptions) SearchResult {
	var result SearchResult

	limit := opts.Cap
	if limit <= 0 {
		limit = DefaultSearchCap
	}
	needle := strings.ToLower(opts.Needle)
	if needle == "" {
		return result
	}

	err := Walk(ctx, root, opts.Walk, func(ev Event) error {
		switch ev.Type {
		case EnterDir, FileEntry:
			if ev.Rel == "." {
				return nil
			}
			if strings.Contains(strings.ToLower(ev.Entry.Name), needle) {
				result.Matches = append(result.Matches, ev.Rel)
				if len(result.Matches) >= limit {
					result.Truncated = true
					return SkipAll
				}
			}
		case Diagnostic:
			if ev.Diag == DiagCancelled {
				result.Partial = true
				return nil
			}
			result.Errors = append(result.Errors, PathError{Path: ev.Path, Kind: ev.Diag, Err: ev.Err})
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		result.Partial = true
	}

	return result
}
