// Package version 构建版本信息
package version

import (
	"runtime/debug"
)

var (
	// Version 版本号，构建时通过 -ldflags 注入
	Version = "dev"

	// BuildTime 构建时间，通过 -ldflags 注入
	BuildTime = ""

	// GitCommit Git 提交哈希，通过 -ldflags 注入
	GitCommit = ""
)

func init() {
	if GitCommit != "" {
		return
	}
	// go install 构建时从模块信息补齐
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			GitCommit = s.Value
		}
	}
}

// GetVersion 获取完整版本信息
func GetVersion() string {
	version := GetShortVersion()
	if BuildTime != "" {
		version += " (built " + BuildTime + ")"
	}
	if len(GitCommit) >= 8 {
		version += " commit " + GitCommit[:8]
	}
	return version
}

// GetShortVersion 获取简短版本号
func GetShortVersion() string {
	if len(Version) > 0 && Version[0] == 'v' {
		return Version
	}
	return "v" + Version
}
