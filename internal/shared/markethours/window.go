// Package markethours は取引時間帯の判定を提供します。
package markethours

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Lambda ランタイムに zoneinfo が無い場合の埋め込み
)

// Window は固定タイムゾーンにおける曜日と時刻の取引時間帯を表します。
// Open/Close はその日の 0 時からの経過時間で、両端を含みます。
type Window struct {
	Location *time.Location
	Days     map[time.Weekday]bool
	Open     time.Duration
	Close    time.Duration
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// New は "Asia/Kolkata", "Mon-Fri", "09:15", "15:30" のような設定値から Window を生成します。
// days は "Mon-Fri" の範囲指定か "Mon,Wed,Fri" の列挙を受け付けます。
func New(tz, days, open, close string) (Window, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, fmt.Errorf("load location %q: %w", tz, err)
	}
	d, err := parseDays(days)
	if err != nil {
		return Window{}, err
	}
	o, err := parseClock(open)
	if err != nil {
		return Window{}, err
	}
	c, err := parseClock(close)
	if err != nil {
		return Window{}, err
	}
	if c < o {
		return Window{}, fmt.Errorf("close %s is before open %s", close, open)
	}
	return Window{Location: loc, Days: d, Open: o, Close: c}, nil
}

// Contains は t が取引時間帯に含まれるかを返します。
func (w Window) Contains(t time.Time) bool {
	local := t.In(w.Location)
	if !w.Days[local.Weekday()] {
		return false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.Location)
	since := local.Sub(midnight)
	return since >= w.Open && since <= w.Close
}

// Date は t を取引所タイムゾーンの暦日 (YYYY-MM-DD) に変換します。
func (w Window) Date(t time.Time) string {
	return t.In(w.Location).Format(time.DateOnly)
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func parseDays(s string) (map[time.Weekday]bool, error) {
	out := map[time.Weekday]bool{}
	s = strings.ToLower(strings.TrimSpace(s))
	if from, to, ok := strings.Cut(s, "-"); ok {
		f, okF := weekdayNames[strings.TrimSpace(from)]
		e, okE := weekdayNames[strings.TrimSpace(to)]
		if !okF || !okE {
			return nil, fmt.Errorf("parse days %q", s)
		}
		for d := f; ; d = (d + 1) % 7 {
			out[d] = true
			if d == e {
				break
			}
		}
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		d, ok := weekdayNames[strings.TrimSpace(part)]
		if !ok {
			return nil, fmt.Errorf("parse days %q", s)
		}
		out[d] = true
	}
	return out, nil
}
