// Package vault holds the secret model: individual secrets with their
// bounded access logs, the sorted collection with soft-deletion tombstones,
// and the merge routine that applies changes received from a sync agent.
package vault

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// debounceMillis is the window inside which repeated views collapse
	// into one log entry.
	debounceMillis = 60 * 1000

	// maxLogSize bounds the access log; the CREATED entry is never pruned.
	maxLogSize = 100
)

// timeNow is a seam for tests.
var timeNow = time.Now

func nowMillis() int64 {
	return timeNow().UnixMilli()
}

// EntryType identifies what an access log entry recorded.
type EntryType int

const (
	EntryCreated  EntryType = 1
	EntryViewed   EntryType = 2
	EntryChanged  EntryType = 3
	EntryExported EntryType = 4
	EntrySynced   EntryType = 5
	EntryDeleted  EntryType = 6
)

func (t EntryType) String() string {
	switch t {
	case EntryCreated:
		return "created"
	case EntryViewed:
		return "viewed"
	case EntryChanged:
		return "changed"
	case EntryExported:
		return "exported"
	case EntrySynced:
		return "synced"
	case EntryDeleted:
		return "deleted"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// LogEntry is one immutable access log record. Time is in milliseconds
// since the epoch, which is what the container format stores.
type LogEntry struct {
	Type EntryType `json:"type"`
	Time int64     `json:"time"`
}

// Secret is one stored credential. The access log is kept most recent
// first; the single CREATED entry always sits at the end and is never
// removed, so the log is never empty.
type Secret struct {
	description string
	username    string
	password    string
	email       string
	note        string
	log         []LogEntry
	deleted     bool
}

// NewSecret returns an empty secret whose access log holds a single
// CREATED entry stamped with the current time.
func NewSecret(description string) *Secret {
	return &Secret{
		description: description,
		log:         []LogEntry{{Type: EntryCreated, Time: nowMillis()}},
	}
}

func (s *Secret) Description() string { return s.description }
func (s *Secret) Username() string    { return s.username }
func (s *Secret) Email() string       { return s.email }
func (s *Secret) Note() string        { return s.note }
func (s *Secret) Deleted() bool       { return s.deleted }

func (s *Secret) SetDescription(description string) { s.description = description }
func (s *Secret) SetUsername(username string)       { s.username = username }
func (s *Secret) SetEmail(email string)             { s.email = email }
func (s *Secret) SetNote(note string)               { s.note = note }

// Password returns the password and records a VIEWED entry, subject to the
// debounce window.
func (s *Secret) Password() string {
	s.recordAccess(EntryViewed)
	return s.password
}

// PasswordForExport returns the password and records an EXPORTED entry.
// Exports are never debounced.
func (s *Secret) PasswordForExport() string {
	s.recordAccess(EntryExported)
	return s.password
}

// SetPassword replaces the password and records a CHANGED entry.
func (s *Secret) SetPassword(password string) {
	s.recordAccess(EntryChanged)
	s.password = password
}

// SetPasswordSilent replaces the password without touching the access log.
// Used when populating a secret from an import or a remote copy.
func (s *Secret) SetPasswordSilent(password string) {
	s.password = password
}

// MarkDeleted turns the secret into a tombstone and records a DELETED entry.
func (s *Secret) MarkDeleted() {
	s.deleted = true
	s.recordAccess(EntryDeleted)
}

// Update copies the mutable fields of from into s and records reason. The
// description is the secret's identity and is never copied. For reasons
// other than CHANGED and SYNCED the update only proceeds when the two
// descriptions already match.
func (s *Secret) Update(from *Secret, reason EntryType) {
	if reason != EntryChanged && reason != EntrySynced && !s.SameDescription(from) {
		return
	}
	s.password = from.password
	s.username = from.username
	s.email = from.email
	s.note = from.note
	s.recordAccess(reason)
}

// SameDescription reports whether the two secrets share a description,
// ignoring case.
func (s *Secret) SameDescription(other *Secret) bool {
	return strings.EqualFold(s.description, other.description)
}

// Compare orders secrets by description, ignoring case.
func (s *Secret) Compare(other *Secret) int {
	return compareDescriptions(s.description, other.description)
}

func compareDescriptions(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// AccessLog returns a copy of the access log, most recent first.
func (s *Secret) AccessLog() []LogEntry {
	return slices.Clone(s.log)
}

// MostRecentAccess returns the newest access log entry.
func (s *Secret) MostRecentAccess() LogEntry {
	return s.log[0]
}

// LastChanged returns the time of the newest entry that altered the secret:
// CHANGED, SYNCED, CREATED or DELETED.
func (s *Secret) LastChanged() time.Time {
	return time.UnixMilli(s.lastChangedMillis())
}

func (s *Secret) lastChangedMillis() int64 {
	for _, e := range s.log {
		switch e.Type {
		case EntryChanged, EntrySynced, EntryCreated, EntryDeleted:
			return e.Time
		}
	}
	return 0
}

// recordAccess appends a log entry of the given type, applying the rules
// that keep the log from flooding:
//
//	VIEWED   skipped when the newest entry is inside the debounce window
//	CHANGED  swallows a recent VIEWED entry before being added
//	EXPORTED, SYNCED, DELETED  always added
//
// Any other type is ignored.
func (s *Secret) recordAccess(t EntryType) {
	switch t {
	case EntryViewed, EntryChanged, EntryExported, EntrySynced, EntryDeleted:
	default:
		return
	}

	now := nowMillis()
	if t == EntryViewed || t == EntryChanged {
		last := s.log[0]
		if now-last.Time < debounceMillis {
			if t == EntryViewed {
				return
			}
			if last.Type == EntryViewed {
				s.log = s.log[1:]
			}
		}
	}

	s.log = slices.Insert(s.log, 0, LogEntry{Type: t, Time: now})
	s.pruneAccessLog()
}

// pruneAccessLog drops the oldest prunable entries until the log fits.
// The CREATED entry is always the last one, so the second last entry is
// the oldest candidate.
func (s *Secret) pruneAccessLog() {
	for len(s.log) > maxLogSize {
		s.log = slices.Delete(s.log, len(s.log)-2, len(s.log)-1)
	}
}

// SecretData is the flattened form of a secret, used by codecs and
// transports that live outside this package.
type SecretData struct {
	Description string
	Username    string
	Password    string
	Email       string
	Note        string
	Deleted     bool
	Log         []LogEntry
}

// Data copies the secret out into its flattened form.
func (s *Secret) Data() SecretData {
	return SecretData{
		Description: s.description,
		Username:    s.username,
		Password:    s.password,
		Email:       s.email,
		Note:        s.note,
		Deleted:     s.deleted,
		Log:         slices.Clone(s.log),
	}
}

// FromData builds a secret from its flattened form, restoring the log
// invariant when the source carried no entries.
func FromData(d SecretData) *Secret {
	s := &Secret{
		description: d.Description,
		username:    d.Username,
		password:    d.Password,
		email:       d.Email,
		note:        d.Note,
		deleted:     d.Deleted,
		log:         slices.Clone(d.Log),
	}
	if len(s.log) == 0 {
		s.log = []LogEntry{{Type: EntryCreated, Time: nowMillis()}}
	}
	return s
}

type secretWire struct {
	Description *string    `json:"description"`
	Username    *string    `json:"username"`
	Password    *string    `json:"password"`
	Email       *string    `json:"email"`
	Note        *string    `json:"note"`
	Timestamp   int64      `json:"timestamp"`
	Deleted     bool       `json:"deleted"`
	Log         []LogEntry `json:"log"`
}

// MarshalJSON writes the container wire form of the secret. The timestamp
// field mirrors LastChanged; readers ignore it, but older releases exposed
// it and external tooling may rely on it.
func (s *Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(secretWire{
		Description: &s.description,
		Username:    &s.username,
		Password:    &s.password,
		Email:       &s.email,
		Note:        &s.note,
		Timestamp:   s.lastChangedMillis(),
		Deleted:     s.deleted,
		Log:         s.log,
	})
}

// UnmarshalJSON reads the container wire form. The string fields are all
// required; deleted and log are optional, and a missing or empty log is
// replaced by a fresh CREATED entry so the log invariant holds.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var w secretWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Description == nil || w.Username == nil || w.Password == nil ||
		w.Email == nil || w.Note == nil {
		return fmt.Errorf("secret record is missing a required field")
	}

	s.description = *w.Description
	s.username = *w.Username
	s.password = *w.Password
	s.email = *w.Email
	s.note = *w.Note
	s.deleted = w.Deleted
	s.log = w.Log
	if len(s.log) == 0 {
		s.log = []LogEntry{{Type: EntryCreated, Time: nowMillis()}}
	}
	return nil
}
