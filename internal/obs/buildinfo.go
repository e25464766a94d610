package obs

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "studyhall_build_info",
		Help: "Always 1; labels identify the running build.",
	},
	[]string{"version", "commit", "go_version"},
)

// SetBuildInfo publishes the running build. A later call replaces the
// earlier labels so only one series is ever exported.
func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}
