package scoreboard

import "fmt"

// FormatTime renders a final time for display. Zero means the lane was
// unused and shows nothing; negative means the timing readings disagreed
// and shows the sentinel. Seconds always carry two integer digits and two
// decimals; minutes appear unpadded only when nonzero.
//
//	9.87   -> "09.87"
//	65.3   -> "1:05.30"
//	120.0  -> "2:00.00"
func FormatTime(seconds float64) string {
	if seconds == 0 {
		return ""
	}
	if seconds < 0 {
		return "--:--.--"
	}
	minutes := int(seconds / 60)
	rem := seconds - float64(minutes)*60
	if minutes == 0 {
		return fmt.Sprintf("%05.2f", rem)
	}
	return fmt.Sprintf("%d:%05.2f", minutes, rem)
}

// FormatPlace renders a finish place as an English ordinal. Place zero is
// unplaced and shows nothing.
func FormatPlace(place int) string {
	switch place {
	case 0:
		return ""
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", place)
	}
}
