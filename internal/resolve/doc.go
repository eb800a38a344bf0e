// Package resolve turns human-supplied entity specs (a literal id, an exact
// name, or a name fragment) into exactly one canonical id among a set of
// candidates fetched from a listing endpoint.
//
// The matching ladder is strict and ordered:
//  1. A spec that equals a candidate id verbatim always wins.
//  2. An exact case-insensitive name match wins next, and suppresses any
//     broader substring matches.
//  3. A case-insensitive substring match on the name is the fallback.
//
// Zero matches yield a NotFoundError; two or more equally-ranked matches yield
// an AmbiguousError carrying the full candidate list so the caller can re-run
// with a narrower spec or a literal id. Ties are never broken automatically.
package resolve
