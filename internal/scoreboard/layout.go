package scoreboard

import "github.com/lanecast/lanecast/internal/conf"

// Column width fractions of the usable width. The remainder past the four
// columns is slack.
const (
	idxPct  = 0.12
	plPct   = 0.10
	namePct = 0.55
	timePct = 0.20

	eventHeatPct = 0.33
	descPct      = 0.66

	// fontScale relates text size to row height.
	fontScale = 0.75
)

// Anchor controls horizontal text placement within a box.
type Anchor uint8

const (
	AnchorLeft Anchor = iota
	AnchorCenter
	AnchorRight
)

// Box positions one text element: X is the anchor coordinate, Baseline the
// text baseline, Width the clip width in pixels.
type Box struct {
	X        int
	Baseline int
	Width    int
	Anchor   Anchor
}

// Layout holds every element position for one canvas size and lane count.
// Rows exist for the full lane capacity; rows past the displayed lane count
// keep their slot so geometry is stable as the count changes.
type Layout struct {
	LineHeight int
	FontSize   int

	EventHeat   Box
	Description Box
	HdrLane     Box
	HdrName     Box
	HdrTime     Box

	LaneIdx   [conf.MaxLanes]Box
	LanePlace [conf.MaxLanes]Box
	LaneName  [conf.MaxLanes]Box
	LaneTime  [conf.MaxLanes]Box
}

// ComputeLayout derives element geometry from the canvas size, displayed
// lane count and border/gap fractions. Two text lines are reserved above
// the lane grid for the event/heat header and the column header row.
func ComputeLayout(width, height, laneCount int, borderPct, headerGapPct float64) Layout {
	lineHeight := int(float64(height) * (1 - 2*borderPct - headerGapPct) / float64(laneCount+2))

	lpos := int(float64(width) * borderPct)
	rpos := int(float64(width) * (1 - borderPct))
	usable := rpos - lpos

	headerBase := int(float64(height)*borderPct) + lineHeight
	laneTop := int(float64(height)*(borderPct+headerGapPct)) + 2*lineHeight

	l := Layout{
		LineHeight: lineHeight,
		FontSize:   int(fontScale * float64(lineHeight)),
		EventHeat: Box{
			X: lpos, Baseline: headerBase,
			Width: int(float64(usable) * eventHeatPct), Anchor: AnchorLeft,
		},
		Description: Box{
			X: rpos, Baseline: headerBase,
			Width: int(float64(usable) * descPct), Anchor: AnchorRight,
		},
		HdrLane: Box{
			X: lpos + int(idxPct/3*float64(usable)), Baseline: laneTop,
			Width: int(idxPct * float64(usable)), Anchor: AnchorCenter,
		},
		HdrName: Box{
			X: lpos + int((idxPct+plPct)*float64(usable)), Baseline: laneTop,
			Width: int(namePct * float64(usable)), Anchor: AnchorLeft,
		},
		HdrTime: Box{
			X: rpos, Baseline: laneTop,
			Width: int(timePct * float64(usable)), Anchor: AnchorRight,
		},
	}

	for i := 0; i < conf.MaxLanes; i++ {
		base := laneTop + (i+1)*lineHeight
		l.LaneIdx[i] = Box{
			X: lpos + int(idxPct/3*float64(usable)), Baseline: base,
			Width: int(idxPct * float64(usable)), Anchor: AnchorCenter,
		}
		l.LanePlace[i] = Box{
			X: lpos + int(idxPct*float64(usable)), Baseline: base,
			Width: int(plPct * float64(usable)), Anchor: AnchorLeft,
		}
		l.LaneName[i] = Box{
			X: lpos + int((idxPct+plPct)*float64(usable)), Baseline: base,
			Width: int(namePct * float64(usable)), Anchor: AnchorLeft,
		}
		l.LaneTime[i] = Box{
			X: rpos, Baseline: base,
			Width: int(timePct * float64(usable)), Anchor: AnchorRight,
		}
	}
	return l
}
