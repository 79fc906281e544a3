package vault

import (
	"slices"
	"strings"
)

// Collection keeps the active secrets and the tombstones of deleted ones in
// two parallel lists, both sorted by description. A description lives in at
// most one of the two lists at a time.
//
// A Collection is not safe for concurrent use; callers serialize access.
type Collection struct {
	active  []*Secret
	deleted []*Secret
}

func NewCollection() *Collection {
	return &Collection{}
}

// Len returns the number of active secrets.
func (c *Collection) Len() int {
	return len(c.active)
}

// Get returns the active secret at position i.
func (c *Collection) Get(i int) *Secret {
	return c.active[i]
}

// Find returns the active secret with the given description, ignoring case,
// or nil.
func (c *Collection) Find(description string) *Secret {
	for _, s := range c.active {
		if strings.EqualFold(s.description, description) {
			return s
		}
	}
	return nil
}

// Active returns the active secrets in order. The caller must not modify
// the returned slice.
func (c *Collection) Active() []*Secret {
	return c.active
}

// All merges the active and deleted lists into one sorted slice. This is
// the set that gets saved, backed up and offered to sync agents; carrying
// the tombstones along is how deletions reach the other side.
func (c *Collection) All() []*Secret {
	if len(c.deleted) == 0 {
		return c.active
	}
	if len(c.active) == 0 {
		return c.deleted
	}

	all := make([]*Secret, 0, len(c.active)+len(c.deleted))
	a, d := 0, 0
	for a < len(c.active) || d < len(c.deleted) {
		switch {
		case a == len(c.active):
			all = append(all, c.deleted[d])
			d++
		case d == len(c.deleted):
			all = append(all, c.active[a])
			a++
		case c.active[a].Compare(c.deleted[d]) < 0:
			all = append(all, c.active[a])
			a++
		default:
			all = append(all, c.deleted[d])
			d++
		}
	}
	return all
}

// Insert adds a secret to the active list in sorted position. A tombstone
// with the same description is dropped, so re-creating a deleted secret
// revives it instead of resurrecting the deletion later.
func (c *Collection) Insert(s *Secret) int {
	i := 0
	for ; i < len(c.active); i++ {
		if s.Compare(c.active[i]) < 0 {
			break
		}
	}
	c.active = slices.Insert(c.active, i, s)

	for j, d := range c.deleted {
		if s.SameDescription(d) {
			c.deleted = slices.Delete(c.deleted, j, j+1)
			break
		}
	}
	return i
}

// Delete moves the named active secret to the tombstone list, replacing an
// older tombstone of the same description, and marks it deleted. It returns
// the tombstone, or nil when no active secret matches.
func (c *Collection) Delete(description string) *Secret {
	var secret *Secret
	for i, s := range c.active {
		if strings.EqualFold(s.description, description) {
			secret = s
			c.active = slices.Delete(c.active, i, i+1)
			break
		}
	}
	if secret == nil {
		return nil
	}

	i := 0
	for ; i < len(c.deleted); i++ {
		cmp := secret.Compare(c.deleted[i])
		if cmp < 0 {
			break
		}
		if cmp == 0 {
			c.deleted = slices.Delete(c.deleted, i, i+1)
			break
		}
	}
	c.deleted = slices.Insert(c.deleted, i, secret)
	secret.MarkDeleted()
	return secret
}

// Replace loads the collection from a flat list, splitting tombstones from
// active secrets. Both lists are (re)sorted; containers written by the
// legacy formats were ordered case sensitively.
func (c *Collection) Replace(all []*Secret) {
	c.active = c.active[:0]
	c.deleted = c.deleted[:0]
	for _, s := range all {
		if s.Deleted() {
			c.deleted = append(c.deleted, s)
		} else {
			c.active = append(c.active, s)
		}
	}
	SortSecrets(c.active)
	SortSecrets(c.deleted)
}

// Clear empties the collection.
func (c *Collection) Clear() {
	c.active = nil
	c.deleted = nil
}

// SortSecrets sorts a slice of secrets by description, ignoring case. The
// sort is stable so equal descriptions keep their relative order.
func SortSecrets(secrets []*Secret) {
	slices.SortStableFunc(secrets, (*Secret).Compare)
}
