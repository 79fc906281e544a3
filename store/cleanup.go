package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Cleanup brings the data directory back to a tidy state. It deletes
// partial saves left behind by interrupted writes, promotes the most
// recent restore point to be the container when the container itself
// went missing, and prunes old restore points.
//
// At most maxRestorePoints restore points survive, but a point younger
// than restorePointMaxAge is never deleted, even when that leaves more
// than the maximum behind. Failures are logged and skipped; Cleanup is
// best effort and safe to call on every start.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		s.logger.Warn("could not read data directory", zap.Error(err))
		return
	}

	containerExists := s.fileExists(ContainerName)
	points := collectRestorePoints(entries)

	// Partial writes are probably corrupted. Delete them.
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if err := removeFile(filepath.Join(s.dataDir, name)); err != nil {
			s.logger.Warn("could not delete partial save",
				zap.String("file", name), zap.Error(err))
		}
	}

	// No container but restore points exist: the last save was cut short
	// between the rotation and the final rename. Promote the most recent
	// restore point back to being the container.
	if !containerExists && len(points) > 0 {
		mostRecent := 0
		for i, p := range points {
			if p.mod.After(points[mostRecent].mod) {
				mostRecent = i
			}
		}
		p := points[mostRecent]
		if err := renameFile(filepath.Join(s.dataDir, p.name), s.ContainerPath()); err != nil {
			s.logger.Warn("could not promote restore point",
				zap.String("file", p.name), zap.Error(err))
		} else {
			s.logger.Info("promoted restore point to container",
				zap.String("file", p.name))
		}
		points = append(points[:mostRecent], points[mostRecent+1:]...)
	}

	// Prune the oldest restore points beyond the cap, stopping at the
	// first one still young enough to keep.
	sort.Slice(points, func(i, j int) bool { return points[i].mod.Before(points[j].mod) })
	for len(points) > maxRestorePoints {
		oldest := points[0]
		if timeNow().Sub(oldest.mod) <= restorePointMaxAge {
			break
		}
		if err := removeFile(filepath.Join(s.dataDir, oldest.name)); err != nil {
			s.logger.Warn("could not delete restore point",
				zap.String("file", oldest.name), zap.Error(err))
			break
		}
		s.logger.Debug("deleted old restore point", zap.String("file", oldest.name))
		points = points[1:]
	}
}
