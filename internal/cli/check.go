package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"course-planner/internal/model"
	"course-planner/internal/service"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var sections []string

	cmd := &cobra.Command{
		Use:   "check COURSE...",
		Short: "按顺序选课并报告时间冲突",
		Long: `按参数顺序依次勾选课程，每门课程都经过冲突检测：
与已选课程冲突的课程被拒绝并列出全部冲突对。存在被拒绝的课程时以非零状态退出。

--section 指定班次，格式为 "课程:类别=班号"，如 "CSCI 3100:Tutorial=AT01"。`,
		Example: `  planner check --dir ./data "CSCI 3100" CSCI3180 "STAT 2005"
  planner check --dir ./data --section "CSCI 3100:Lecture=B" "CSCI 3100"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ids := make([]string, 0, len(args))
			var subjects []string
			for _, a := range args {
				id := normalizeCourseID(a)
				ids = append(ids, id)
				subjects = append(subjects, subjectOf(id))
			}

			catalog, err := opts.loadCatalog(cmd.Context(), subjects, logger)
			if err != nil {
				return err
			}
			planner := service.NewPlanner(catalog.Courses, nil, logger)

			for _, raw := range sections {
				courseID, category, sectionID, err := parseSectionFlag(raw)
				if err != nil {
					return err
				}
				if _, err := planner.ChooseSection(courseID, category, sectionID); err != nil {
					return fmt.Errorf("--section %q: %w", raw, err)
				}
			}

			out := cmd.OutOrStdout()
			rejected := 0
			for _, id := range ids {
				if c, ok := planner.Course(id); ok && c.Selected {
					continue
				}
				res, err := planner.Toggle(id)
				if err != nil {
					rejected++
					fmt.Fprintf(out, "✗ %s: %v\n", id, err)
					continue
				}
				if !res.Accepted {
					rejected++
					fmt.Fprintf(out, "✗ %s: 与已选课程时间冲突\n", id)
					for _, c := range res.Conflicts {
						fmt.Fprintf(out, "    %s\n", c.Describe())
					}
					continue
				}
				fmt.Fprintf(out, "✓ %s %s\n", res.Course.ID, res.Course.Name)
				for _, e := range service.EffectiveEntries(res.Course) {
					fmt.Fprintf(out, "    %s\n", service.DescribeEntry(e))
				}
			}

			fmt.Fprintf(out, "已选 %d 门，拒绝 %d 门\n", len(planner.Selected()), rejected)
			if rejected > 0 {
				return fmt.Errorf("%d 门课程未能选上", rejected)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sections, "section", nil, `班次选择，格式 "课程:类别=班号"，可重复`)
	return cmd
}

// parseSectionFlag 解析 "CSCI 3100:Tutorial=AT01"
func parseSectionFlag(raw string) (string, model.Category, string, error) {
	course, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return "", "", "", fmt.Errorf("--section %q 格式应为 课程:类别=班号", raw)
	}
	category, sectionID, ok := strings.Cut(rest, "=")
	if !ok || strings.TrimSpace(sectionID) == "" {
		return "", "", "", fmt.Errorf("--section %q 格式应为 课程:类别=班号", raw)
	}

	var cat model.Category
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "lecture", "lec":
		cat = model.CategoryLecture
	case "tutorial", "tut":
		cat = model.CategoryTutorial
	case "laboratory", "lab":
		cat = model.CategoryLaboratory
	case "class":
		cat = model.CategoryClass
	default:
		return "", "", "", fmt.Errorf("--section %q: 未知类别 %q", raw, category)
	}
	return normalizeCourseID(course), cat, strings.TrimSpace(sectionID), nil
}
