package l7

import (
	"sort"

	"github.com/edgeprobe/edgeprobe/pkg/catalog"
)

// Combine aggregates indicator weights into one confidence using
// probabilistic OR: 1 - prod(1 - w_i). Independent evidence sources
// compound, so several weak signals can outrank any single one, and
// the value stays in [0,1] and never decreases as indicators are
// added.
func Combine(indicators []Indicator) float64 {
	miss := 1.0
	for _, ind := range indicators {
		w := ind.Weight
		if w <= 0 {
			continue
		}
		if w > 1 {
			w = 1
		}
		miss *= 1 - w
	}
	return 1 - miss
}

// rankDetections orders detections for output: strictly highest
// confidence first; exact ties prefer more indicators; remaining ties
// fall back to catalog declaration order. The last rule makes output
// reproducible for identical inputs.
func rankDetections(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		a, b := detections[i], detections[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if len(a.Indicators) != len(b.Indicators) {
			return len(a.Indicators) > len(b.Indicators)
		}
		return catalog.DeclarationIndex(a.Service) < catalog.DeclarationIndex(b.Service)
	})
}
