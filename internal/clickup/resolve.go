package clickup

import (
	"context"
	"errors"

	"github.com/fdtorres1/felix-tools/internal/resolve"
)

// ResolveTeamID resolves a team spec to an id. An empty spec falls back to
// the configured default team id, which may itself be empty; callers that
// require a team check for that.
func (c *Client) ResolveTeamID(ctx context.Context, spec string) (string, error) {
	if spec == "" {
		return c.defaultTeamID, nil
	}
	teams, err := c.Teams(ctx)
	if err != nil {
		return "", err
	}
	candidates := make([]resolve.Candidate, 0, len(teams))
	for _, t := range teams {
		candidates = append(candidates, resolve.Candidate{ID: t.ID, Name: t.Name})
	}
	return resolve.Resolve("team", spec, candidates)
}

// spaceCandidates aggregates the spaces of one team, or of every visible team
// when teamID is empty, annotated with the team name for ambiguity reports.
func (c *Client) spaceCandidates(ctx context.Context, teamID string) ([]resolve.Candidate, error) {
	var teams []Team
	if teamID != "" {
		teams = []Team{{ID: teamID}}
	} else {
		all, err := c.Teams(ctx)
		if err != nil {
			return nil, err
		}
		teams = all
	}
	var candidates []resolve.Candidate
	for _, t := range teams {
		spaces, err := c.Spaces(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range spaces {
			candidates = append(candidates, resolve.Candidate{ID: s.ID, Name: s.Name, Scope: t.Name})
		}
	}
	return candidates, nil
}

// ResolveSpaceID resolves a space spec within teamID, or across every
// visible team when teamID is empty.
func (c *Client) ResolveSpaceID(ctx context.Context, teamID, spec string) (string, error) {
	candidates, err := c.spaceCandidates(ctx, teamID)
	if err != nil {
		return "", err
	}
	return resolve.Resolve("space", spec, candidates)
}

// ResolveListID resolves a list spec, optionally scoped to a space and team
// (each itself a spec). Scope resolution happens first: team, then space;
// omitting the scope searches every visible space.
func (c *Client) ResolveListID(ctx context.Context, teamSpec, spaceSpec, listSpec string) (string, error) {
	teamID, err := c.ResolveTeamID(ctx, teamSpec)
	if err != nil {
		return "", err
	}

	var spaces []Space
	if spaceSpec != "" {
		spaceID, err := c.ResolveSpaceID(ctx, teamID, spaceSpec)
		if err != nil {
			return "", err
		}
		spaces = []Space{{ID: spaceID, Name: spaceSpec}}
	} else {
		var teams []Team
		if teamID != "" {
			teams = []Team{{ID: teamID}}
		} else {
			teams, err = c.Teams(ctx)
			if err != nil {
				return "", err
			}
		}
		for _, t := range teams {
			ss, err := c.Spaces(ctx, t.ID)
			if err != nil {
				return "", err
			}
			spaces = append(spaces, ss...)
		}
	}

	var candidates []resolve.Candidate
	for _, sp := range spaces {
		lists, err := c.ListsInSpace(ctx, sp)
		if err != nil {
			return "", err
		}
		for _, l := range lists {
			cand := resolve.Candidate{ID: l.ID, Name: l.Name}
			if l.Space != nil {
				cand.Scope = l.Space.Name
			}
			candidates = append(candidates, cand)
		}
	}
	return resolve.Resolve("list", listSpec, candidates)
}

// ResolveUserIDs resolves a batch of user specs (ids, emails, usernames or
// fragments) against the members of every visible team. The whole batch fails
// on the first unresolvable or ambiguous spec.
func (c *Client) ResolveUserIDs(ctx context.Context, specs []string) ([]string, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return nil, err
	}
	var candidates []resolve.Candidate
	seen := make(map[int64]bool)
	for _, t := range teams {
		for _, m := range t.Members {
			if seen[m.User.ID] {
				continue
			}
			seen[m.User.ID] = true
			candidates = append(candidates, resolve.Candidate{
				ID:    itoa(m.User.ID),
				Name:  m.User.Username,
				Email: m.User.Email,
			})
		}
	}
	return resolve.ResolveAll("user", specs, candidates)
}

// IsResolutionError reports whether err is a not-found or ambiguity outcome
// from resolution, as opposed to a remote failure.
func IsResolutionError(err error) bool {
	var nf *resolve.NotFoundError
	var amb *resolve.AmbiguousError
	return errors.As(err, &nf) || errors.As(err, &amb)
}
