package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFrameSpike  BookmarkType = "frame_spike"
	BookmarkTimeDropped BookmarkType = "time_dropped"
	BookmarkStepFailure BookmarkType = "step_failure"
	BookmarkSteadyState BookmarkType = "steady_state"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Frame       int64        `csv:"frame" json:"frame"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"frame", b.Frame,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments in the frame statistics.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	steadyWindows int // consecutive windows with a stable frame rate
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady state detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	// Failures and dropped time need no history
	if stats.StepErrors > 0 {
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkStepFailure,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("%d frames failed to step", stats.StepErrors),
		})
	}
	if b := bd.checkTimeDropped(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		// Frame spike: worst delta > 4x rolling mean delta
		if b := bd.checkFrameSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Steady state: low delta variation over 5 windows, nothing dropped
		if b := bd.checkSteadyState(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkTimeDropped(stats WindowStats) *Bookmark {
	if stats.DroppedSec <= 0 {
		return nil
	}
	wall := stats.DeltaMeanMS / 1000 * float64(stats.Frames)
	if wall <= 0 || stats.DroppedSec < wall*0.1 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkTimeDropped,
		Frame:       stats.WindowEndFrame,
		Description: fmt.Sprintf("Dropped %.3fs of %.3fs wall time", stats.DroppedSec, wall),
	}
}

func (bd *BookmarkDetector) checkFrameSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.DeltaMeanMS
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.DeltaMaxMS > avg*4 && stats.DeltaMaxMS > 50 {
		return &Bookmark{
			Type:        BookmarkFrameSpike,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Frame took %.1fms, %.1fx average (%.1fms)", stats.DeltaMaxMS, stats.DeltaMaxMS/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	if stats.DroppedSec > 0 || stats.StepErrors > 0 || stats.DeltaMeanMS <= 0 {
		bd.steadyWindows = 0
		return nil
	}

	// Coefficient of variation of the frame delta below 10%
	cv := stats.DeltaStdMS / stats.DeltaMeanMS
	if cv < 0.1 {
		bd.steadyWindows++
	} else {
		bd.steadyWindows = 0
	}

	if bd.steadyWindows == 5 { // trigger exactly once per run of 5
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Steady %.1f fps over 5 windows with %d bodies", stats.FPS, stats.Bodies),
		}
	}
	return nil
}
