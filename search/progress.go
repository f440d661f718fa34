package search

import (
	"fmt"
	"time"

	"github.com/keyquarry/go-keyquarry/uint256"
)

// Progress is a point-in-time snapshot of a running search.
type Progress struct {
	KeysChecked    uint64
	KeysPerSecond  uint64
	Percent        float64
	StartTime      time.Time
	LastUpdate     time.Time
	Current        uint256.Uint256
	ResultsFound   int
	UnitsCompleted uint64
	UnitsTotal     uint64
}

// FormatSpeed renders the throughput with a unit prefix.
func (p Progress) FormatSpeed() string {
	kps := p.KeysPerSecond
	switch {
	case kps >= 1e12:
		return fmt.Sprintf("%.2f Tkeys/s", float64(kps)/1e12)
	case kps >= 1e9:
		return fmt.Sprintf("%.2f Gkeys/s", float64(kps)/1e9)
	case kps >= 1e6:
		return fmt.Sprintf("%.2f Mkeys/s", float64(kps)/1e6)
	case kps >= 1e3:
		return fmt.Sprintf("%.2f Kkeys/s", float64(kps)/1e3)
	}
	return fmt.Sprintf("%d keys/s", kps)
}

// FormatElapsed renders hh:mm:ss since the start.
func (p Progress) FormatElapsed() string {
	elapsed := int64(0)
	if !p.StartTime.IsZero() {
		elapsed = int64(time.Since(p.StartTime).Seconds())
	}
	return fmt.Sprintf("%02d:%02d:%02d", elapsed/3600, elapsed%3600/60, elapsed%60)
}

// ProgressCallback observes progress snapshots.
type ProgressCallback func(Progress)
