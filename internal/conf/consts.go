package conf

const (
	// MaxLanes is the maximum number of lanes the scoreboard can display.
	// The layout always reserves this many row slots so geometry stays
	// stable when the configured lane count changes.
	MaxLanes = 10

	// ImageWidth and ImageHeight are the fixed pixel dimensions of every
	// published frame, live or waiting. Display devices rely on the
	// resolution never changing between frames.
	ImageWidth  = 1280
	ImageHeight = 720

	// StartListExt and ResultExt are the file suffixes emitted by the
	// timing console software.
	StartListExt = ".scb"
	ResultExt    = ".do4"
)
