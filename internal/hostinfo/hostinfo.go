// Package hostinfo reports the host facts dhk depends on: the Windows build
// decides which display APIs exist.
package hostinfo

import (
	"fmt"
	"regexp"
	"runtime"

	"github.com/hashicorp/go-version"
	"github.com/shirou/gopsutil/v3/host"
)

const (
	// MinConfigBuild is Windows 7, the first release with the display
	// configuration database API.
	MinConfigBuild = 7600
	// MinDPIBuild is Windows 10 1607, the first release where the per-source
	// DPI scale can be read and written.
	MinDPIBuild = 14393
)

type Report struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion"`
	KernelVersion   string `json:"kernelVersion"`
	Architecture    string `json:"architecture"`
	Version         string `json:"version,omitempty"`
	Build           int    `json:"build,omitempty"`
	DisplayConfig   bool   `json:"displayConfig"`
	DPIScaling      bool   `json:"dpiScaling"`
}

// Collect gathers the report from the running host.
func Collect() (*Report, error) {
	info, err := host.Info()
	if err != nil {
		return nil, fmt.Errorf("hostinfo: %w", err)
	}
	return fromInfo(info), nil
}

func fromInfo(info *host.InfoStat) *Report {
	r := &Report{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Architecture:    runtime.GOARCH,
	}
	if info.OS != "windows" {
		return r
	}
	v, ok := ParseVersion(info.KernelVersion)
	if !ok {
		v, ok = ParseVersion(info.PlatformVersion)
	}
	if !ok {
		return r
	}
	r.Version = v.String()
	r.Build = v.Segments()[2]
	r.DisplayConfig = configConstraint.Check(v)
	r.DPIScaling = dpiConstraint.Check(v)
	return r
}

var (
	versionPattern   = regexp.MustCompile(`\d+\.\d+\.\d+`)
	configConstraint = mustConstraint(fmt.Sprintf(">= 6.1.%d", MinConfigBuild))
	dpiConstraint    = mustConstraint(fmt.Sprintf(">= 10.0.%d", MinDPIBuild))
)

func mustConstraint(c string) version.Constraints {
	cs, err := version.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// ParseVersion extracts the major.minor.build triple from version strings
// such as "10.0.19045 Build 19045.3803" or "10.0.22631.2861".
func ParseVersion(s string) (*version.Version, bool) {
	m := versionPattern.FindString(s)
	if m == "" {
		return nil, false
	}
	v, err := version.NewVersion(m)
	if err != nil {
		return nil, false
	}
	return v, true
}

// ParseBuild returns the build number of a Windows version string.
func ParseBuild(s string) (int, bool) {
	v, ok := ParseVersion(s)
	if !ok {
		return 0, false
	}
	return v.Segments()[2], true
}
