package telemetry

import "testing"

func steadyWindow(end int64) WindowStats {
	return WindowStats{
		WindowEndFrame: end,
		Frames:         60,
		DeltaMeanMS:    16.7,
		DeltaStdMS:     0.5,
		DeltaMaxMS:     18,
		FPS:            60,
		Bodies:         3,
	}
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FrameSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(steadyWindow(int64(i * 60)))
	}

	spike := steadyWindow(300)
	spike.DeltaMaxMS = 120
	spike.DeltaStdMS = 13
	if !hasBookmark(bd.Check(spike), BookmarkFrameSpike) {
		t.Error("expected frame_spike bookmark")
	}
}

func TestBookmarkDetector_FrameSpikeNeedsHistory(t *testing.T) {
	bd := NewBookmarkDetector(10)

	spike := steadyWindow(0)
	spike.DeltaMaxMS = 500
	if hasBookmark(bd.Check(spike), BookmarkFrameSpike) {
		t.Error("first window should not report a spike")
	}
}

func TestBookmarkDetector_TimeDropped(t *testing.T) {
	bd := NewBookmarkDetector(10)

	stats := steadyWindow(60)
	stats.DeltaMeanMS = 50 // 3s of wall time over 60 frames
	stats.DroppedSec = 0.5
	if !hasBookmark(bd.Check(stats), BookmarkTimeDropped) {
		t.Error("expected time_dropped bookmark")
	}

	// A sliver of dropped time is not worth a bookmark
	stats.DroppedSec = 0.01
	if hasBookmark(bd.Check(stats), BookmarkTimeDropped) {
		t.Error("unexpected time_dropped bookmark")
	}
}

func TestBookmarkDetector_StepFailure(t *testing.T) {
	bd := NewBookmarkDetector(10)

	stats := steadyWindow(60)
	stats.StepErrors = 2
	bookmarks := bd.Check(stats)
	if !hasBookmark(bookmarks, BookmarkStepFailure) {
		t.Fatal("expected step_failure bookmark")
	}
	if bookmarks[0].Frame != 60 {
		t.Errorf("frame = %d, want 60", bookmarks[0].Frame)
	}
}

func TestBookmarkDetector_SteadyState(t *testing.T) {
	bd := NewBookmarkDetector(10)

	count := 0
	for i := 0; i < 12; i++ {
		if hasBookmark(bd.Check(steadyWindow(int64(i*60))), BookmarkSteadyState) {
			count++
			// First window has no history, so the fifth steady one is index 5
			if i != 5 {
				t.Errorf("steady_state at window %d, want 5", i)
			}
		}
	}
	if count != 1 {
		t.Errorf("steady_state fired %d times, want 1", count)
	}
}
