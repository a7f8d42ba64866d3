package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recall/internal/store"
)

// maxNameLen caps a candidate name; anything longer is noise from the
// classifier's capture patterns.
const maxNameLen = 100

// personResolution is the outcome of mapping candidate names to people
// and their sessions. NotFound and NoSessions are terminal business
// outcomes, not errors.
type personResolution struct {
	PersonIDs    []string
	DisplayNames []string // canonical names in resolution order
	SessionIDs   []string
	NotFound     bool
	NoSessions   bool
}

// resolvePersons runs the resolution cascade for each candidate name,
// first hit wins: exact normalized key, then escaped case-insensitive
// substring on display name, then alias substring. Candidates that
// resolve to nothing are dropped; only when all fail is the person-not-
// found outcome reported.
func (e *Engine) resolvePersons(ctx context.Context, ownerID string, names []string) (*personResolution, error) {
	res := &personResolution{}
	seen := make(map[string]bool)

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || len(name) > maxNameLen {
			continue
		}

		person, err := e.resolveOne(ctx, ownerID, name)
		if err != nil {
			return nil, fmt.Errorf("person resolution failed for %q: %w", raw, err)
		}
		if person == nil {
			e.logger.Debug("candidate name did not resolve",
				zap.String("owner", ownerID), zap.String("name", raw))
			continue
		}
		if seen[person.ID] {
			continue
		}
		seen[person.ID] = true
		res.PersonIDs = append(res.PersonIDs, person.ID)
		res.DisplayNames = append(res.DisplayNames, person.DisplayName)
	}

	if len(res.PersonIDs) == 0 {
		res.NotFound = true
		return res, nil
	}

	sessionIDs, err := e.store.SessionsForPeople(ctx, ownerID, res.PersonIDs)
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if len(sessionIDs) == 0 {
		res.NoSessions = true
		return res, nil
	}
	res.SessionIDs = sessionIDs
	return res, nil
}

// resolveOne applies the three-step cascade for a single normalized
// candidate. Returns nil without error on a miss.
func (e *Engine) resolveOne(ctx context.Context, ownerID, name string) (person *personRecord, err error) {
	if p, err := e.store.PersonByKey(ctx, ownerID, name); err == nil {
		return &personRecord{ID: p.ID, DisplayName: p.DisplayName}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if p, err := e.store.PersonByDisplayName(ctx, ownerID, name); err == nil {
		return &personRecord{ID: p.ID, DisplayName: p.DisplayName}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// Alias matching happens in Go: aliases are a JSON array column.
	people, err := e.store.PeopleByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		for _, alias := range p.Aliases {
			if strings.Contains(strings.ToLower(alias), name) {
				return &personRecord{ID: p.ID, DisplayName: p.DisplayName}, nil
			}
		}
	}
	return nil, nil
}

type personRecord struct {
	ID          string
	DisplayName string
}
