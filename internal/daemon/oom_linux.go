//go:build linux

package daemon

import (
	"fmt"
	"os"
	"strconv"
)

// SetOOMScoreAdj writes the given score to /proc/self/oom_score_adj.
// Negative scores make the kernel's OOM killer prefer other processes.
func SetOOMScoreAdj(score int) error {
	if score < -1000 || score > 1000 {
		return fmt.Errorf("oom_score_adj out of range: %d", score)
	}
	return os.WriteFile("/proc/self/oom_score_adj", []byte(strconv.Itoa(score)), 0o644)
}
