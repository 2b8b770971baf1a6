package utils

import (
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	develVersion       = "(devel)"
	revisionSettingKey = "vcs.revision"
	shortRevisionSize  = 12
)

// Version is overridden at link time with -ldflags "-X github.com/temirov/codeagg/internal/utils.Version=v1.2.3".
var Version = ""

// GetApplicationVersion reports the linked version, the module version recorded in the
// build info, or the VCS revision the binary was built from, in that order.
func GetApplicationVersion() string {
	if strings.TrimSpace(Version) != "" {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if !buildInfoAvailable {
		return unknownVersion
	}
	if buildInfo.Main.Version != "" && buildInfo.Main.Version != develVersion {
		return buildInfo.Main.Version
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == revisionSettingKey && setting.Value != "" {
			revision := setting.Value
			if len(revision) > shortRevisionSize {
				revision = revision[:shortRevisionSize]
			}
			return develVersion + " " + revision
		}
	}
	return unknownVersion
}
