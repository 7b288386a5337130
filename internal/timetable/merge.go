package timetable

import (
	"fmt"
	"strings"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// Identity selects how fresh records are correlated with persisted ones.
type Identity string

const (
	// IdentityID correlates by the sequential id. Ids shift when an earlier
	// leaf is added or removed, so a stale status can land on another class.
	IdentityID Identity = "id"
	// IdentityKey correlates by branch/semester/section/day/time, which is
	// stable across unrelated skeleton edits.
	IdentityKey Identity = "key"
)

// ParseIdentity validates a configured identity mode. Empty means IdentityID.
func ParseIdentity(raw string) (Identity, error) {
	switch Identity(strings.ToLower(strings.TrimSpace(raw))) {
	case "", IdentityID:
		return IdentityID, nil
	case IdentityKey:
		return IdentityKey, nil
	}
	return "", fmt.Errorf("unknown class identity %q (want id or key)", raw)
}

func (i Identity) of(c models.ClassRecord) string {
	if i == IdentityKey {
		return c.Key
	}
	return fmt.Sprintf("%d", c.ID)
}

// MergeStatus returns fresh with the status of matching stored records
// carried over. Content always comes from fresh; stored records with a
// default status change nothing. The second result counts carried overrides.
func MergeStatus(fresh, stored []models.ClassRecord, identity Identity) ([]models.ClassRecord, int) {
	merged := make([]models.ClassRecord, len(fresh))
	copy(merged, fresh)
	if len(stored) == 0 {
		return merged, 0
	}

	statuses := make(map[string]models.ClassStatus, len(stored))
	for _, c := range stored {
		if c.Status.IsDefault() {
			continue
		}
		key := identity.of(c)
		if key == "" {
			continue
		}
		if _, seen := statuses[key]; !seen {
			statuses[key] = c.Status
		}
	}

	carried := 0
	for i := range merged {
		if status, ok := statuses[identity.of(merged[i])]; ok {
			merged[i].Status = status
			carried++
		}
	}
	return merged, carried
}
