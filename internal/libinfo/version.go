/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo provides the version of the module resolved from the build info.
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ShortName is the short name of the module.
const ShortName = "go-crawldispatch"

const moduleName = "github.com/acronis/" + ShortName

// PrometheusVersionLabel is a const label with the module version added to all dispatcher metrics.
const PrometheusVersionLabel = "crawldispatch_version"

// AddPrometheusVersionLabel returns a copy of labels with the module version label.
func AddPrometheusVersionLabel(labels prometheus.Labels) prometheus.Labels {
	labelsCopy := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		labelsCopy[k] = v
	}
	labelsCopy[PrometheusVersionLabel] = GetVersion()
	return labelsCopy
}

// UserAgent returns the default User-Agent of the crawler (e.g. "go-crawldispatch/v1.2.3").
func UserAgent() string {
	return ShortName + "/" + GetVersion()
}

var (
	version     string
	versionOnce sync.Once
)

// GetVersion returns the module version or "v0.0.0" if it cannot be determined.
func GetVersion() string {
	versionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			version = extractVersion(buildInfo, moduleName)
		}
		if version == "" {
			version = "v0.0.0"
		}
	})
	return version
}

// extractVersion looks for the module either as the main one or among dependencies.
// The module may be presented as "moduleName" or "moduleName/vX".
func extractVersion(buildInfo *buildinfo.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if re.MatchString(buildInfo.Main.Path) && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
