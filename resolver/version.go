package resolver

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// BaselineMajor is assumed when the target framework is absent or unusable.
	BaselineMajor = 8
	// FloorMajor is the oldest reference pack version searched.
	FloorMajor = 6
)

var markerVersion = regexp.MustCompile(`Version=v?(\d+)`)

// ParseMajor extracts the major version from a target framework marker such
// as ".NETCoreApp,Version=v8.0". Missing, unparsable or pre-floor versions
// yield BaselineMajor.
func ParseMajor(marker string) int {
	m := markerVersion.FindStringSubmatch(marker)
	if m == nil {
		return BaselineMajor
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < FloorMajor {
		return BaselineMajor
	}
	return n
}

// compareVersions orders dotted version directory names numerically,
// component by component. Non-numeric components compare as strings.
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case pa[i] != pb[i]:
			return strings.Compare(pa[i], pb[i])
		}
	}
	return len(pa) - len(pb)
}
