package playback

// Progress is the displayed playback position.
type Progress struct {
	Current  float64 `json:"current"`
	Duration float64 `json:"duration"`
	Percent  float64 `json:"percent"`
}

// ProgressSink receives progress updates for display.
type ProgressSink interface {
	PublishProgress(p Progress)
}

func progressOf(current, duration float64) Progress {
	p := Progress{Current: current, Duration: duration}
	if duration > 0 {
		p.Percent = clampPercent(current / duration * 100)
	}
	return p
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
