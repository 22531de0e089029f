package cache

import (
	"time"
)

// TimeUntilNextSlot は now から次の step 境界（次回フェッチ時刻）までの期間を返します。
// 境界ちょうどの場合は次の境界までの step を返します。
func TimeUntilNextSlot(now time.Time, step time.Duration) time.Duration {
	if step <= 0 {
		return 0
	}
	next := now.Truncate(step).Add(step)
	return next.Sub(now)
}
