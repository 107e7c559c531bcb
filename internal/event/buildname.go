package event

import (
	"fmt"
	"strings"
)

// Suffix of config sections that carry per-event options.
const sectionSuffix = "_params"

// Pattern of the latest launch-control build key for a branch and a target.
const latestBuildFmt = "%s/%s/LATEST"

// SectionName returns the config section holding keyword's event options,
// e.g. "new_build_params" for "new_build".
func SectionName(keyword string) string {
	return keyword + sectionSuffix
}

// HonoredSection reports whether a config section belongs to an event type.
func HonoredSection(section string) bool {
	return strings.HasSuffix(section, sectionSuffix)
}

// BuildName formats a build name from board, type, milestone and manifest,
// e.g. "x86-alex-release/R20-2015.0.0". Purely representational; inputs are
// not validated and the result is never parsed back here.
func BuildName(board, buildType, milestone, manifest string) string {
	return fmt.Sprintf("%s-%s/R%s-%s", board, buildType, milestone, manifest)
}

// LaunchControlKey formats the latest-build query key for branch and target,
// e.g. "git_mnc_release/shamu-eng/LATEST".
func LaunchControlKey(branch, target string) string {
	return fmt.Sprintf(latestBuildFmt, branch, target)
}

// TargetBoard returns the board component of a launch-control target: the
// part before the final dash, e.g. "shamu" for "shamu-userdebug". A target
// without a dash is returned unchanged.
func TargetBoard(target string) string {
	if i := strings.LastIndex(target, "-"); i >= 0 {
		return target[:i]
	}
	return target
}
