package startlist

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/lanecast/lanecast/internal/conf"
)

// Store holds the event table built from the most recent directory scan.
// The table is replaced wholesale on every rescan; readers always observe
// either the previous or the new table, never a partial rebuild.
type Store struct {
	table  atomic.Pointer[[]*Entry]
	logger *slog.Logger
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	s := &Store{logger: logger}
	empty := make([]*Entry, 0)
	s.table.Store(&empty)
	return s
}

// Rescan parses every start list file in dir and atomically replaces the
// event table. Files that fail to parse are skipped; a parse failure never
// aborts the batch. The returned error covers only the directory listing.
func (s *Store) Rescan(dir string) error {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	entries := make([]*Entry, 0, len(dirEntries))
	seen := make(map[int]bool, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(strings.ToLower(de.Name()), conf.StartListExt) {
			continue
		}
		entry, err := ParseFile(filepath.Join(dir, de.Name()))
		if err != nil {
			s.logger.Debug("skipping unparsable start list", "file", de.Name(), "error", err)
			continue
		}
		if seen[entry.EventNum] {
			s.logger.Warn("duplicate event number in start lists, keeping first",
				"event", entry.EventNum, "file", de.Name())
			continue
		}
		seen[entry.EventNum] = true
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b *Entry) int { return a.EventNum - b.EventNum })
	s.table.Store(&entries)

	s.logger.Debug("start list table rebuilt", "dir", dir, "events", len(entries))
	return nil
}

// Find returns the entry for an event number from the current table.
func (s *Store) Find(eventNum int) (*Entry, bool) {
	table := *s.table.Load()
	i, found := slices.BinarySearchFunc(table, eventNum, func(e *Entry, n int) int {
		return e.EventNum - n
	})
	if !found {
		return nil, false
	}
	return table[i], true
}

// Events returns the current table in event number order.
func (s *Store) Events() []*Entry {
	table := *s.table.Load()
	out := make([]*Entry, len(table))
	copy(out, table)
	return out
}
