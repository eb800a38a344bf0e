// Package clickup provides a client for the ClickUp v2 REST API, covering
// the workspace hierarchy (teams, spaces, folders, lists), task search and
// mutation, and the name-based resolution the CLI exposes.
//
// Resolution accepts either a literal id, an exact name, or a case-insensitive
// name fragment for teams, spaces, lists and users, with ambiguity surfaced
// rather than guessed; see the resolve package for the exact rules.
//
// Authentication uses a personal API token from the shared agents env file.
// GET requests retry transient remote failures (429 and 5xx) on a short fixed
// budget; mutations are never retried.
package clickup
