package task

import "fmt"

const (
	LabelCompleted = "completed"
	LabelCancelled = "cancelled"
	LabelFailed    = "generation failed"
)

// Label maps a task to its display label. It is advisory only and never
// feeds back into the lifecycle.
func Label(t Task) string {
	switch t.Phase {
	case Failed:
		if t.LastError != "" {
			return t.LastError
		}
		return LabelFailed
	case Cancelled:
		return LabelCancelled
	case Completed:
		return LabelCompleted
	}
	p := clampProgress(t.Progress)
	if t.MultiSegment != nil {
		return multiSegmentLabel(p, *t.MultiSegment)
	}
	switch {
	case p < 25:
		return "initializing"
	case p < 50:
		return "processing reference"
	case p < 75:
		return "generating"
	default:
		return "finalizing"
	}
}

func multiSegmentLabel(p int, ms MultiSegment) string {
	switch {
	case p < 5:
		return "initializing multi-speaker"
	case p < 90:
		return fmt.Sprintf("generating segment %d of %d...", ms.Current, ms.Total)
	case p < 95:
		return "concatenating segments"
	default:
		return "finalizing"
	}
}
