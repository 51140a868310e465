// Package syncgate 实现每日同步限制的判定
package syncgate

import (
	"fmt"
	"time"
)

// mintGracePeriod 出生时间与最后更新几乎相同视为刚铸造，放行首次同步
const mintGracePeriod = time.Second

// Decision 同步判定结果
type Decision struct {
	Allowed        bool
	HoursUntilNext int
}

// Message 拒绝时的用户提示
func (d Decision) Message() string {
	if d.Allowed {
		return ""
	}
	return fmt.Sprintf("You've already synced today. You can sync again in %d hours.", d.HoursUntilNext)
}

// Evaluate 判定当前时刻能否同步
// 最后更新时间为零值视为从未同步，直接放行；
// 当日铸造且最后更新与出生时间差距在一秒内的视为铸造时写入，不计为当日同步；
// 同一 UTC 自然日内已同步则拒绝，并给出到下个 UTC 零点的整小时数（向上取整）
func Evaluate(now, dateOfBirth, lastUpdated time.Time) Decision {
	if lastUpdated.IsZero() {
		return Decision{Allowed: true}
	}

	if !dateOfBirth.IsZero() && sameUTCDay(now, dateOfBirth) {
		delta := lastUpdated.Sub(dateOfBirth)
		if delta < 0 {
			delta = -delta
		}
		if delta < mintGracePeriod {
			return Decision{Allowed: true}
		}
	}

	if !sameUTCDay(now, lastUpdated) {
		return Decision{Allowed: true}
	}
	now = now.UTC()

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	remaining := midnight.Sub(now)
	hours := int(remaining / time.Hour)
	if remaining%time.Hour != 0 {
		hours++
	}
	return Decision{Allowed: false, HoursUntilNext: hours}
}

func sameUTCDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
