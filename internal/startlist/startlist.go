// Package startlist parses timing console start list files and maintains
// the event table built from a watched directory.
//
// A start list file holds one event: a header line of the form
// "#NNN EVENT DESCRIPTION" followed by ten lines per heat, one per lane,
// each formatted as a padded swimmer name, a "--" separator and the team.
package startlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/errors"
)

// Swimmer is one lane assignment within a heat.
type Swimmer struct {
	Name string
	Team string
}

// Entry is the parsed start list for a single event.
type Entry struct {
	EventNum    int    // event number, unique within a directory scan
	Description string // event description, e.g. "BOYS 100 FREE"
	Heats       int    // number of heats in the event

	lanes [][]Swimmer // heats x MaxLanes lane assignments
}

// Swimmer returns the assignment for a 1-based heat and lane. The second
// return is false when the heat or lane is out of range or vacant.
func (e *Entry) Swimmer(heat, lane int) (Swimmer, bool) {
	if heat < 1 || heat > len(e.lanes) || lane < 1 || lane > conf.MaxLanes {
		return Swimmer{}, false
	}
	sw := e.lanes[heat-1][lane-1]
	if sw.Name == "" && sw.Team == "" {
		return Swimmer{}, false
	}
	return sw, true
}

// FileForEvent returns the conventional start list filename for an event
// number: zero padded to three digits, e.g. event 7 -> "E007.scb".
func FileForEvent(eventNum int) string {
	return fmt.Sprintf("E%03d%s", eventNum, conf.StartListExt)
}

var headerPattern = regexp.MustCompile(`^#(\d+)\s+(.*)$`)

// ParseFile reads and parses a single start list file.
func ParseFile(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("startlist").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close() //nolint:errcheck // read-only file

	entry, err := Parse(f)
	if err != nil {
		return nil, errors.New(err).
			Component("startlist").
			Category(errors.CategoryFileParse).
			Context("path", path).
			Build()
	}
	return entry, nil
}

// Parse decodes a start list from a reader.
func Parse(r io.Reader) (*Entry, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, errors.NewStd("empty start list")
	}
	m := headerPattern.FindStringSubmatch(strings.TrimRight(scanner.Text(), "\r\n"))
	if m == nil {
		return nil, errors.NewStd("malformed start list header")
	}
	eventNum, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("bad event number %q: %w", m[1], err)
	}

	var laneLines []string
	for scanner.Scan() {
		laneLines = append(laneLines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(laneLines) == 0 || len(laneLines)%conf.MaxLanes != 0 {
		return nil, fmt.Errorf("start list has %d lane lines, want a multiple of %d",
			len(laneLines), conf.MaxLanes)
	}

	heats := len(laneLines) / conf.MaxLanes
	lanes := make([][]Swimmer, heats)
	for h := 0; h < heats; h++ {
		lanes[h] = make([]Swimmer, conf.MaxLanes)
		for l := 0; l < conf.MaxLanes; l++ {
			lanes[h][l] = parseLaneLine(laneLines[h*conf.MaxLanes+l])
		}
	}

	return &Entry{
		EventNum:    eventNum,
		Description: strings.TrimSpace(m[2]),
		Heats:       heats,
		lanes:       lanes,
	}, nil
}

// parseLaneLine splits "SWIMMER, NAME        --TEAM" into its parts.
// A line without the separator is treated as a vacant lane.
func parseLaneLine(line string) Swimmer {
	name, team, found := strings.Cut(line, "--")
	if !found {
		return Swimmer{}
	}
	return Swimmer{
		Name: strings.TrimSpace(name),
		Team: strings.TrimSpace(team),
	}
}
