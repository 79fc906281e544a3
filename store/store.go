// Package store persists encrypted secrets containers on disk.
//
// A container lives under the fixed name "secrets" inside a single data
// directory. Every save writes the new container to a temporary file and
// rotates the previous one to a timestamped restore point before the new
// file is renamed into place, so a crash or a full disk never destroys
// the last good copy. Restore points double as local backups; Cleanup
// prunes them and repairs the directory after an interrupted save.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// ContainerName is the name of the container file inside the data
	// directory.
	ContainerName = "secrets"

	// tempPrefix marks partially written containers. Cleanup deletes
	// anything carrying it.
	tempPrefix = "new"

	// restorePointPrefix marks rotated containers kept as restore points.
	restorePointPrefix = "@"

	// restorePointTimeFormat is the timestamp embedded in restore point
	// names, to the minute.
	restorePointTimeFormat = "06.01.02-15:04"

	// maxRestorePoints is how many restore points Cleanup keeps.
	maxRestorePoints = 10

	// restorePointMaxAge protects recent restore points: Cleanup never
	// deletes a point younger than this, even beyond maxRestorePoints.
	restorePointMaxAge = 48 * time.Hour
)

// Overridable for tests that simulate disk failures mid-save.
var (
	timeNow    = time.Now
	writeFile  = os.WriteFile
	renameFile = os.Rename
	removeFile = os.Remove
)

// Store reads and writes secrets containers in a data directory. All
// file operations are serialized through a single mutex; every part of
// the program must go through the same Store instance.
type Store struct {
	mu         sync.Mutex
	dataDir    string
	backupPath string
	logger     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store. Defaults to a no-op
// logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithBackupPath sets the destination file for Backup and makes it the
// first candidate returned by RestorePoints.
func WithBackupPath(path string) Option {
	return func(s *Store) { s.backupPath = path }
}

// New returns a Store rooted at dataDir, creating the directory if it
// does not exist yet.
func New(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	s := &Store{
		dataDir: dataDir,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ContainerPath returns the full path of the container file.
func (s *Store) ContainerPath() string {
	return filepath.Join(s.dataDir, ContainerName)
}

// BackupPath returns the configured backup destination, or empty when
// none was set.
func (s *Store) BackupPath() string {
	return s.backupPath
}

// Exists reports whether a container or any restore point is present.
// Stray files left in the data directory by other tools are ignored, so
// they cannot make an empty install look like an existing one.
func (s *Store) Exists() bool {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == ContainerName || strings.HasPrefix(name, restorePointPrefix) {
			return true
		}
	}
	return false
}

// Load reads the raw container bytes. The error wraps os.ErrNotExist
// when no container has been saved yet.
func (s *Store) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.ContainerPath())
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	return data, nil
}

// Save atomically replaces the container with data.
//
// The write happens in three steps: the new container goes to a
// temporary file, the existing container is rotated to a timestamped
// restore point, and the temporary file is renamed into place. A
// failure at any step leaves the previous container installed.
func (s *Store) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Pick names that collide with nothing already on disk. The index is
	// shared between the two so repeated saves within one minute line up.
	prefix := restorePointPrefix + timeNow().Format(restorePointTimeFormat)
	tempName := tempPrefix
	rotName := prefix
	for i := 0; s.fileExists(tempName) || s.fileExists(rotName); i++ {
		tempName = tempPrefix + strconv.Itoa(i)
		rotName = prefix + strconv.Itoa(i)
	}
	tempPath := filepath.Join(s.dataDir, tempName)
	rotPath := filepath.Join(s.dataDir, rotName)
	containerPath := s.ContainerPath()

	// Step 1: write the new container to a temporary file.
	if err := writeFile(tempPath, data, 0o600); err != nil {
		s.logger.Warn("could not write secrets file", zap.Error(err))
		removeFile(tempPath)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	// Step 2: rotate the existing container to a restore point.
	if s.fileExists(ContainerName) {
		if err := renameFile(containerPath, rotPath); err != nil {
			s.logger.Warn("could not move existing secrets file", zap.Error(err))
			removeFile(tempPath)
			return fmt.Errorf("%w: %v", ErrCannotMoveExisting, err)
		}
	}

	// Step 3: move the new container into place. On failure the rotated
	// container is moved back, best effort.
	if err := renameFile(tempPath, containerPath); err != nil {
		s.logger.Warn("could not move new secrets file", zap.Error(err))
		renameFile(rotPath, containerPath)
		removeFile(tempPath)
		return fmt.Errorf("%w: %v", ErrCannotMoveNew, err)
	}

	s.logger.Debug("secrets saved", zap.String("path", containerPath))
	return nil
}

// Backup writes data to the configured backup path. Unlike Save there is
// no rotation: the backup is a plain copy, overwritten each time.
func (s *Store) Backup(data []byte) error {
	if s.backupPath == "" {
		return ErrNoBackupPath
	}
	if err := writeFile(s.backupPath, data, 0o600); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// RestorePoints lists the files Restore can bring back, the configured
// backup file first when it exists, then the rotated restore points,
// most recent first.
func (s *Store) RestorePoints() []string {
	var list []string
	if s.backupPath != "" {
		if _, err := os.Stat(s.backupPath); err == nil {
			list = append(list, s.backupPath)
		}
	}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return list
	}
	points := collectRestorePoints(entries)
	sort.Slice(points, func(i, j int) bool { return points[i].mod.After(points[j].mod) })
	for _, p := range points {
		list = append(list, p.name)
	}
	return list
}

// LoadRestorePoint reads the raw bytes of a restore point. An absolute
// name refers to a file outside the data directory, such as the backup
// file, and is read as given. Anything else resolves inside the data
// directory.
func (s *Store) LoadRestorePoint(name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(s.dataDir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading restore point: %w", err)
	}
	return data, nil
}

// Restore replaces the container with the contents of the named restore
// point. The copy goes through Save, so a failed restore cannot destroy
// the current container. Callers should verify the restore point
// decrypts before committing to it.
func (s *Store) Restore(name string) error {
	data, err := s.LoadRestorePoint(name)
	if err != nil {
		return err
	}
	return s.Save(data)
}

// DeleteAll removes the container, every restore point and every
// temporary file. Unrelated files in the data directory are left alone.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return fmt.Errorf("reading data directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name != ContainerName &&
			!strings.HasPrefix(name, restorePointPrefix) &&
			!strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if err := removeFile(filepath.Join(s.dataDir, name)); err != nil {
			return fmt.Errorf("deleting %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) fileExists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dataDir, name))
	return err == nil
}

type restorePoint struct {
	name string
	mod  time.Time
}

func collectRestorePoints(entries []os.DirEntry) []restorePoint {
	var points []restorePoint
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), restorePointPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		points = append(points, restorePoint{name: entry.Name(), mod: info.ModTime()})
	}
	return points
}
