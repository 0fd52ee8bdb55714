package model

import (
	"encoding/json"
	"errors"
	"testing"

	pkgerrors "course-planner/pkg/errors"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		raw     string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:30", At(9, 30), false},
		{"9:30", At(9, 30), false},
		{"930", At(9, 30), false},
		{"0930", At(9, 30), false},
		{"1230", At(12, 30), false},
		{"9.30", At(9, 30), false},
		{"14.05", At(14, 5), false},
		{" 11:30 ", At(11, 30), false},
		{"00:00", 0, false},
		{"23:59", At(23, 59), false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"2500", 0, true},
		{"7", 0, true},
		{"noon", 0, true},
		{"", 0, true},
		{"9:3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTime(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparseableTime) {
					t.Errorf("ParseTime(%q) 期望 ErrUnparseableTime, 实际 %v", tt.raw, err)
				}
				if !errors.Is(err, pkgerrors.ErrTimeParse) {
					t.Errorf("ParseTime(%q) 的错误应归类为 ErrTimeParse, 实际 %v", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTime(%q) 意外错误: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseTime(%q) = %s, 期望 %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTimeOfDay_FormatRoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m += 7 {
		tod := TimeOfDay(m)
		got, err := ParseTime(tod.Format())
		if err != nil {
			t.Fatalf("解析 %s 失败: %v", tod.Format(), err)
		}
		if got != tod {
			t.Fatalf("往返不一致: %d → %s → %d", m, tod.Format(), got)
		}
	}
}

func TestTimeOfDay_Format(t *testing.T) {
	if s := At(8, 5).Format(); s != "08:05" {
		t.Errorf("期望 08:05, 实际 %s", s)
	}
	if s := At(8, 5).String(); s != "08:05" {
		t.Errorf("String() 期望 08:05, 实际 %s", s)
	}
}

func TestTimeOfDay_AddClamps(t *testing.T) {
	if got := At(23, 30).Add(60); got != MinutesPerDay-1 {
		t.Errorf("期望截断到 23:59, 实际 %s", got)
	}
	if got := At(0, 30).Add(-60); got != 0 {
		t.Errorf("期望截断到 00:00, 实际 %s", got)
	}
	if got := At(9, 0).Add(75); got != At(10, 15) {
		t.Errorf("期望 10:15, 实际 %s", got)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	b, err := json.Marshal(At(14, 30))
	if err != nil || string(b) != `"14:30"` {
		t.Fatalf("期望 \"14:30\", 实际 %s, %v", b, err)
	}

	var v TimeOfDay
	if err := json.Unmarshal([]byte(`"0930"`), &v); err != nil || v != At(9, 30) {
		t.Errorf("字符串反序列化失败: %v, %v", v, err)
	}
	if err := json.Unmarshal([]byte(`600`), &v); err != nil || v != At(10, 0) {
		t.Errorf("分钟数反序列化失败: %v, %v", v, err)
	}
	if err := json.Unmarshal([]byte(`1440`), &v); err == nil {
		t.Error("越界分钟数应报错")
	}
}

func TestTimeOfDay_ScanValue(t *testing.T) {
	var v TimeOfDay
	if err := v.Scan("13:45:00"); err != nil || v != At(13, 45) {
		t.Errorf("Scan 失败: %v, %v", v, err)
	}
	if err := v.Scan([]byte("08:30:00")); err != nil || v != At(8, 30) {
		t.Errorf("Scan []byte 失败: %v, %v", v, err)
	}
	dv, _ := At(8, 30).Value()
	if dv != "08:30:00" {
		t.Errorf("Value 期望 08:30:00, 实际 %v", dv)
	}
}
