package main

import "course-planner/internal/cli"

// 版本信息（构建时通过 -ldflags 注入）
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cli.SetVersion(Version, Commit)
	cli.Execute()
}
