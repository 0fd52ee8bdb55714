package model

import "testing"

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		raw     string
		want    Weekday
		wantErr bool
	}{
		{"0", Monday, false},
		{"6", Sunday, false},
		{" 2 ", Wednesday, false},
		{"7", "", true},
		{"-1", "", true},
		{"Monday", Monday, false},
		{"fri", Friday, false},
		{"THU", Thursday, false},
		{"tu", "", true},
		{"someday", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseWeekday(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeekday(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWeekday(%q) = %q, 期望 %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestWeekdayIndex(t *testing.T) {
	for i, d := range Weekdays {
		if d.Index() != i {
			t.Errorf("%s.Index() = %d, 期望 %d", d, d.Index(), i)
		}
		back, ok := WeekdayFromIndex(i)
		if !ok || back != d {
			t.Errorf("WeekdayFromIndex(%d) = %s", i, back)
		}
	}
	if Weekday("Funday").Index() != -1 {
		t.Error("未知星期应返回 -1")
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]Category{
		"--LEC (1234)":   CategoryLecture,
		"A-LEC":          CategoryLecture,
		"AT01-TUT":       CategoryTutorial,
		"tut":            CategoryTutorial,
		"L01-LAB (5678)": CategoryLaboratory,
		"SEM":            CategoryClass,
		"":               CategoryClass,
		// LEC 优先于 TUT
		"LEC/TUT": CategoryLecture,
	}
	for raw, want := range tests {
		if got := NormalizeCategory(raw); got != want {
			t.Errorf("NormalizeCategory(%q) = %s, 期望 %s", raw, got, want)
		}
	}
}

func TestCourse_Clone(t *testing.T) {
	c := &Course{
		ID:               "CSCI 3100",
		Entries:          []ScheduleEntry{{SessionType: "--LEC", Day: Monday, Start: At(9, 0), End: At(10, 0)}},
		SelectedSections: map[Category]string{CategoryLecture: "-"},
	}
	cp := c.Clone()
	cp.Entries[0].Day = Friday
	cp.SelectedSections[CategoryLecture] = "B"

	if c.Entries[0].Day != Monday {
		t.Error("修改副本条目不应影响原课程")
	}
	if c.SelectedSections[CategoryLecture] != "-" {
		t.Error("修改副本班次选择不应影响原课程")
	}
}

func TestCourseID(t *testing.T) {
	if id := CourseID(" csci ", " 3100 "); id != "CSCI 3100" {
		t.Errorf("期望 CSCI 3100, 实际 %q", id)
	}
}
