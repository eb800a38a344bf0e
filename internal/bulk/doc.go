// Package bulk implements the filter-then-mutate engine behind broad cleanup
// operations: a declarative predicate is evaluated over a stream of candidate
// items, and a mutation is applied to each survivor.
//
// The engine is deliberately non-transactional. A single item failure is
// recorded and the run proceeds; items already actioned are never rolled
// back. Destructive runs over an unscoped (team-wide) search pause for
// interactive confirmation once the match count exceeds a threshold, while
// runs scoped to a single list proceed without gating regardless of count.
package bulk
