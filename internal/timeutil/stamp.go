package timeutil

import "time"

// FrameStamp returns the counts timestamp for a frame, in hundredths of a
// second since the Unix epoch. Whole seconds come from start plus
// frame/fps; the frame's position inside its second adds a fixed
// int(100/rate) hundredths per frame, where rate is fps truncated to an
// integer (29.97 gives 29), as the decoder reports it.
//
// A non-positive fps is treated as 1.
func FrameStamp(start time.Time, frame int, fps float64) int64 {
	if fps <= 0 {
		fps = 1
	}
	rate := int(fps)
	if rate < 1 {
		rate = 1
	}
	secs := start.Unix() + int64(float64(frame)/fps)
	return secs*100 + int64(100/rate)*int64(frame%rate)
}

// FromStamp converts a FrameStamp back to a time.
func FromStamp(stamp int64) time.Time {
	return time.Unix(stamp/100, (stamp%100)*int64(10*time.Millisecond))
}
