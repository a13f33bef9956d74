package permission

import (
	"strings"

	"github.com/samber/lo"
)

// Builds classifies negotiated client build tags. A build is legacy when its
// tag ends with one of the configured suffixes, e.g. "november_16_2015".
type Builds struct {
	legacySuffixes []string
}

func NewBuilds(legacySuffixes []string) Builds {
	return Builds{legacySuffixes: lo.Compact(legacySuffixes)}
}

func (b Builds) IsLegacy(version string) bool {
	if version == "" {
		return false
	}
	return lo.ContainsBy(b.legacySuffixes, func(suffix string) bool {
		return strings.HasSuffix(version, suffix)
	})
}
