package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"course-planner/internal/service"
)

func newNormalizeCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "normalize SUBJECT...",
		Short: "输出学科目录归一化后的课程",
		Example: `  planner normalize --dir ./data CSCI STAT
  planner normalize --dir ./data --format text CSCI`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			catalog, err := opts.loadCatalog(cmd.Context(), args, logger)
			if err != nil {
				return err
			}
			for _, s := range catalog.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "跳过学科 %s：目录文件不存在或无法解析\n", s)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(catalog.Courses)
			case "text":
				for i := range catalog.Courses {
					c := &catalog.Courses[i]
					fmt.Fprintf(out, "%s  %s  %s\n", c.ID, c.Name, c.Color)
					for _, e := range c.Entries {
						fmt.Fprintf(out, "    %s\n", service.DescribeEntry(e))
					}
				}
				return nil
			default:
				return fmt.Errorf("不支持的输出格式 %q（可选 json、text）", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "输出格式：json 或 text")
	return cmd
}
