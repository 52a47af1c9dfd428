// Package matching scores external candidates against a normalized query and
// decides whether the best one is trustworthy enough to merge.
//
// The score blends title similarity with a year agreement term. Decisions are
// deterministic: the same query and candidate list always produce the same
// result, and ties go to the candidate the service ranked first.
package matching
