// Package locator finds flight-controller log files on local storage and
// auto-mounted removable media.
package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/droneops/loglift/pkg/config"
	"github.com/sirupsen/logrus"
)

// ErrNoLogsFound is returned when no log file exists in any candidate
// directory.
var ErrNoLogsFound = errors.New("no log files found")

// Candidate is a discovered log file.
type Candidate struct {
	Path    string
	ModTime time.Time
}

// Locator scans for log files and selects the most recent one.
type Locator struct {
	log logrus.FieldLogger
	cfg *config.LocatorConfig
}

// New creates a Locator from the given configuration.
func New(log logrus.FieldLogger, cfg *config.LocatorConfig) *Locator {
	return &Locator{
		log: log.WithField("component", "locator"),
		cfg: cfg,
	}
}

// FindLatest returns the most recently modified log file across the
// configured logs directory and all discovered removable-media directories.
// Ties are broken by enumeration order: the first candidate seen wins.
func (l *Locator) FindLatest() (Candidate, error) {
	var all []Candidate

	if l.cfg.LogsDir != "" {
		found, err := l.scanDir(l.cfg.LogsDir)
		if err != nil {
			l.log.WithError(err).
				WithField("dir", l.cfg.LogsDir).
				Warn("Configured logs directory is not readable")
		} else {
			l.log.WithFields(logrus.Fields{
				"dir":   l.cfg.LogsDir,
				"count": len(found),
			}).Info("Scanned configured logs directory")

			all = append(all, found...)
		}
	}

	for _, dir := range l.MountLogDirs() {
		found, err := l.scanDir(dir)
		if err != nil {
			l.log.WithError(err).
				WithField("dir", dir).
				Warn("Discovered mount directory is not readable")

			continue
		}

		l.log.WithFields(logrus.Fields{
			"dir":   dir,
			"count": len(found),
		}).Info("Scanned auto-discovered mount directory")

		all = append(all, found...)
	}

	if len(all) == 0 {
		return Candidate{}, ErrNoLogsFound
	}

	latest := all[0]
	for _, c := range all[1:] {
		if c.ModTime.After(latest.ModTime) {
			latest = c
		}
	}

	l.log.WithFields(logrus.Fields{
		"path":     latest.Path,
		"modified": latest.ModTime.Format(time.RFC3339),
	}).Info("Selected latest log file")

	return latest, nil
}

// MountLogDirs returns candidate log directories on removable media. A
// mount is considered flight-controller storage when its directory name
// contains one of the configured vendor tokens; its log directories are
// <mount>/APM/logs and <mount>/logs when present.
func (l *Locator) MountLogDirs() []string {
	var dirs []string

	for _, base := range l.expandBaseDirs() {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			if !l.matchesVendor(entry.Name()) {
				continue
			}

			mount := filepath.Join(base, entry.Name())

			for _, sub := range []string{filepath.Join("APM", "logs"), "logs"} {
				candidate := filepath.Join(mount, sub)
				if info, err := os.Stat(candidate); err == nil && info.IsDir() {
					dirs = append(dirs, candidate)
				}
			}
		}
	}

	l.log.WithField("dirs", dirs).Debug("Discovered removable-media log directories")

	return dirs
}

// scanDir returns all files in dir with the configured extension.
func (l *Locator) scanDir(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var found []Candidate

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.EqualFold(filepath.Ext(entry.Name()), l.cfg.Extension) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		found = append(found, Candidate{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}

	return found, nil
}

// expandBaseDirs resolves $USER in the configured mount base dirs.
func (l *Locator) expandBaseDirs() []string {
	username := os.Getenv("USER")
	if username == "" {
		username = "pi"
	}

	dirs := make([]string, 0, len(l.cfg.MountBaseDirs))
	for _, base := range l.cfg.MountBaseDirs {
		dirs = append(dirs, strings.ReplaceAll(base, "$USER", username))
	}

	return dirs
}

// matchesVendor checks a mount directory name against the vendor tokens.
func (l *Locator) matchesVendor(name string) bool {
	upper := strings.ToUpper(name)

	for _, token := range l.cfg.VendorTokens {
		if strings.Contains(upper, token) {
			return true
		}
	}

	return false
}
