package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "course-planner/pkg/errors"
)

// ErrUnparseableTime 无法识别的时间文本，归类为 pkgerrors.ErrTimeParse
var ErrUnparseableTime = fmt.Errorf("无法解析的时间格式: %w", pkgerrors.ErrTimeParse)

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// TimeOfDay 一天内的时刻，以自零点起的分钟数表示，取值范围 [0, 1440)
type TimeOfDay int

// ── 时间格式识别 ──
//
// 按顺序尝试，首个匹配的模式即为结果：
//   1. H:MM / HH:MM
//   2. HMM / HHMM（军用时间，左补零至 4 位后按 2/2 切分）
//   3. H.MM / HH.MM

var (
	colonPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	militaryPattern = regexp.MustCompile(`^\d{3,4}$`)
	dotPattern      = regexp.MustCompile(`^(\d{1,2})\.(\d{2})$`)
)

// ParseTime 将原始时间文本解析为 TimeOfDay
// 无法识别时返回 ErrUnparseableTime，不做任何猜测
func ParseTime(raw string) (TimeOfDay, error) {
	s := strings.TrimSpace(raw)

	if m := colonPattern.FindStringSubmatch(s); m != nil {
		return fromParts(raw, m[1], m[2])
	}
	if militaryPattern.MatchString(s) {
		padded := strings.Repeat("0", 4-len(s)) + s
		return fromParts(raw, padded[:2], padded[2:])
	}
	if m := dotPattern.FindStringSubmatch(s); m != nil {
		return fromParts(raw, m[1], m[2])
	}
	return 0, fmt.Errorf("%w: %q", ErrUnparseableTime, raw)
}

func fromParts(raw, hh, mm string) (TimeOfDay, error) {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableTime, raw)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustParseTime 解析失败时 panic，仅用于常量与测试数据
func MustParseTime(raw string) TimeOfDay {
	t, err := ParseTime(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// At 由时、分构造 TimeOfDay
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// Minutes 返回自零点起的分钟数
func (t TimeOfDay) Minutes() int { return int(t) }

// Hour 小时部分
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute 分钟部分
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid 是否落在 [0, 1440) 内
func (t TimeOfDay) Valid() bool { return t >= 0 && t < MinutesPerDay }

// Format 输出补零的 "HH:MM"
func (t TimeOfDay) Format() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) String() string { return t.Format() }

// Add 加上若干分钟，结果截断在当天范围内
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	v := int(t) + minutes
	if v < 0 {
		v = 0
	}
	if v > MinutesPerDay-1 {
		v = MinutesPerDay - 1
	}
	return TimeOfDay(v)
}

// ── JSON / 数据库序列化 ──

// MarshalJSON 以 "HH:MM" 输出
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format())
}

// UnmarshalJSON 接受 "HH:MM" 等文本或分钟数
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := ParseTime(s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("TimeOfDay: 不支持的 JSON 值 %s", string(data))
	}
	if !TimeOfDay(n).Valid() {
		return fmt.Errorf("%w: %d", ErrUnparseableTime, n)
	}
	*t = TimeOfDay(n)
	return nil
}

// Scan 读取 PostgreSQL time 类型（"HH:MM:SS"）
func (t *TimeOfDay) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*t = 0
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		*t = TimeOfDay(v)
		return nil
	default:
		return fmt.Errorf("TimeOfDay.Scan: unsupported type %T", src)
	}
	// 去掉秒
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		s = parts[0] + ":" + parts[1]
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Value 写入为 "HH:MM:00"
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.Format() + ":00", nil
}
