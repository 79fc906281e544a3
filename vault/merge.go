package vault

import "slices"

// MergeChanges applies secrets received from a sync agent to a sorted list
// and returns the result. Last writer wins, one remote secret at a time:
//
//   - no local secret with that description: added in sorted position,
//     unless the remote copy is a tombstone, which then has nothing to
//     delete and is dropped
//   - matching local secret, remote copy live: local fields overwritten
//     and a SYNCED entry recorded, keeping the local history
//   - matching local secret, remote copy a tombstone: local secret removed
//
// The input slice is modified in place and must be sorted by description.
func MergeChanges(local []*Secret, changes []*Secret) []*Secret {
	for _, remote := range changes {
		local = applyChange(local, remote)
	}
	return local
}

func applyChange(local []*Secret, remote *Secret) []*Secret {
	for i, existing := range local {
		cmp := remote.Compare(existing)
		if cmp < 0 {
			if !remote.Deleted() {
				local = slices.Insert(local, i, remote)
			}
			return local
		}
		if cmp == 0 {
			if remote.Deleted() {
				return slices.Delete(local, i, i+1)
			}
			existing.Update(remote, EntrySynced)
			return local
		}
	}
	if !remote.Deleted() {
		local = append(local, remote)
	}
	return local
}

// Merge applies remote changes to the active list, then clears the
// tombstones: the deletions they carried went out in the payload that
// produced this response, so their work is done.
func (c *Collection) Merge(changes []*Secret) {
	c.active = MergeChanges(c.active, changes)
	c.deleted = nil
}
