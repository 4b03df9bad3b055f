// Package results decodes race result files and merges swimmer identity
// from the start list table.
package results

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/errors"
)

// LaneResult is the outcome for one lane. Time semantics: 0 means the lane
// was empty, negative means the timing readings were inconsistent, positive
// is the final time in seconds. Place 0 means unplaced.
type LaneResult struct {
	Lane  int
	Name  string
	Team  string
	Time  float64
	Place int
}

// RaceResult is one fully decoded race. Values are immutable after
// construction; merging start-list names produces a new value.
type RaceResult struct {
	MeetID      string
	EventNum    int
	Heat        int
	Description string
	Lanes       []LaneResult
	ReceivedAt  time.Time
}

// DecoderConfig parameterizes result decoding.
type DecoderConfig struct {
	// Lanes is the number of lane lines the file must carry.
	Lanes int
	// MinReadings is how many individual watch readings a lane needs
	// before its time is trusted.
	MinReadings int
	// MinValidTime is the threshold below which a reading is noise.
	MinValidTime float64
	// MaxSpread is the largest allowed difference between the fastest and
	// slowest reading for a lane before the result is flagged inconsistent.
	MaxSpread float64
}

// DecodeFile reads and decodes one result file.
func DecodeFile(path string, cfg DecoderConfig) (*RaceResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("results").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close() //nolint:errcheck // read-only handle

	r, err := Decode(f, cfg)
	if err != nil {
		return nil, errors.New(err).
			Component("results").
			Category(errors.CategoryFileParse).
			Context("path", path).
			Build()
	}
	return r, nil
}

// Decode parses a result stream. The format is line oriented: a header
// "event;heat;...", one "LaneN;t1;t2;..." line per lane, then a checksum
// trailer. A missing trailer marks a partially written file and is an error
// so the caller's retry loop can pick the file up again.
func Decode(r io.Reader, cfg DecoderConfig) (*RaceResult, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		return nil, fmt.Errorf("empty result stream")
	}
	header := strings.Split(strings.TrimSpace(sc.Text()), ";")
	if len(header) < 2 {
		return nil, fmt.Errorf("malformed header %q", sc.Text())
	}
	eventNum, err := strconv.Atoi(header[0])
	if err != nil || eventNum < 0 {
		return nil, fmt.Errorf("invalid event number %q", header[0])
	}
	heat, err := strconv.Atoi(header[1])
	if err != nil || heat < 1 {
		return nil, fmt.Errorf("invalid heat number %q", header[1])
	}

	lanes := make([]LaneResult, 0, cfg.Lanes)
	for lane := 1; lane <= cfg.Lanes; lane++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("truncated at lane %d", lane)
		}
		readings, err := parseLaneLine(strings.TrimSpace(sc.Text()), lane)
		if err != nil {
			return nil, err
		}
		lanes = append(lanes, LaneResult{
			Lane: lane,
			Time: resolveTime(readings, cfg),
		})
	}

	// The writer appends a hash line last; its presence means the file is
	// complete. The hash itself is not verified.
	if !sc.Scan() || strings.TrimSpace(sc.Text()) == "" {
		return nil, fmt.Errorf("missing trailer")
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	assignPlaces(lanes)
	return &RaceResult{
		EventNum:   eventNum,
		Heat:       heat,
		Lanes:      lanes,
		ReceivedAt: time.Now(),
	}, nil
}

// Swimmer returns the lane result for a 1-based lane number.
func (r *RaceResult) Swimmer(lane int) (LaneResult, bool) {
	if lane < 1 || lane > len(r.Lanes) {
		return LaneResult{}, false
	}
	return r.Lanes[lane-1], true
}

func parseLaneLine(line string, lane int) ([]float64, error) {
	fields := strings.Split(line, ";")
	if len(fields) < 2 || fields[0] != fmt.Sprintf("Lane%d", lane) {
		return nil, fmt.Errorf("expected lane %d line, got %q", lane, line)
	}
	readings := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("lane %d: bad reading %q", lane, f)
		}
		readings = append(readings, v)
	}
	return readings, nil
}

// resolveTime reduces a lane's watch readings to a final time. No readings
// above the noise threshold means an empty lane (0). Too few readings, or
// readings spread wider than MaxSpread, means the result cannot be trusted
// and the lane is flagged inconsistent (negative).
func resolveTime(readings []float64, cfg DecoderConfig) float64 {
	valid := make([]float64, 0, len(readings))
	for _, v := range readings {
		if v >= cfg.MinValidTime && v > 0 {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0
	}
	if len(valid) < cfg.MinReadings {
		return -1
	}
	sort.Float64s(valid)
	if valid[len(valid)-1]-valid[0] > cfg.MaxSpread {
		return -1
	}
	return median(valid)
}

// median expects sorted input. An even count averages the middle pair and
// rounds to hundredths, matching the timing system's resolution.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	mid := (sorted[n/2-1] + sorted[n/2]) / 2
	return math.Round(mid*100) / 100
}

// assignPlaces ranks lanes with valid times using competition ranking:
// ties share a place and the following place is skipped.
func assignPlaces(lanes []LaneResult) {
	type ranked struct {
		idx  int
		time float64
	}
	var field []ranked
	for i, l := range lanes {
		if l.Time > 0 {
			field = append(field, ranked{idx: i, time: l.Time})
		}
	}
	sort.Slice(field, func(a, b int) bool { return field[a].time < field[b].time })
	for i, r := range field {
		place := i + 1
		if i > 0 && r.time == field[i-1].time {
			place = lanes[field[i-1].idx].Place
		}
		lanes[r.idx].Place = place
	}
}

// DefaultDecoderConfig derives a decoder configuration from settings.
func DefaultDecoderConfig(s *conf.DecoderSettings) DecoderConfig {
	return DecoderConfig{
		Lanes:        s.Lanes,
		MinReadings:  s.MinReadings,
		MinValidTime: s.MinValidTime,
		MaxSpread:    s.MaxSpread,
	}
}
