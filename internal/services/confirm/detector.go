// -----------------------------------------------------------------------
// Confirmation detector - strict marker classification over page evidence
// -----------------------------------------------------------------------

package confirm

import (
	"sort"
	"strings"

	"github.com/ternarybob/peto/internal/models"
)

// Classify runs the strict confirmation rules over page text and the
// final URL. markers is the full strict phrase list, curated plus
// learned. A marker phrase in the text confirms; a URL marker alone also
// confirms. Nothing else does: apply buttons, job descriptions, and
// marketing copy never contain the receipt phrasing these markers pin.
func Classify(text, url string, markers []string) *models.Confirmation {
	lowerText := strings.ToLower(text)
	lowerURL := strings.ToLower(url)

	conf := &models.Confirmation{
		FinalURL:   url,
		StrictHits: []string{},
		CompatHits: []string{},
	}

	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(marker)) {
			conf.StrictHits = append(conf.StrictHits, marker)
		}
	}

	for _, urlMarker := range models.StrictURLMarkers {
		if strings.Contains(lowerURL, urlMarker) {
			conf.URLMatch = true
			break
		}
	}

	conf.CompatHits = deriveCompat(conf.StrictHits, conf.URLMatch)
	conf.Confirmed = len(conf.StrictHits) > 0 || conf.URLMatch
	return conf
}

// deriveCompat maps strict hits back to the umbrella labels downstream
// acceptance tooling greps for. A URL-only confirmation contributes the
// "confirmation" label. The result is sorted for stable output.
func deriveCompat(strictHits []string, urlMatch bool) []string {
	set := make(map[string]struct{})
	for _, hit := range strictHits {
		for label, phrases := range models.CompatMarkers {
			for _, phrase := range phrases {
				if hit == phrase {
					set[label] = struct{}{}
				}
			}
		}
	}
	if urlMatch {
		set["confirmation"] = struct{}{}
	}

	labels := make([]string, 0, len(set))
	for label := range set {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// ContextWindows extracts the text around each strict hit so a reviewer
// can audit the classification without re-opening the page.
func ContextWindows(text string, hits []string) []string {
	lower := strings.ToLower(text)
	windows := make([]string, 0, len(hits))
	for _, hit := range hits {
		idx := strings.Index(lower, strings.ToLower(hit))
		if idx < 0 {
			continue
		}
		start := idx - models.ContextWindow
		if start < 0 {
			start = 0
		}
		end := idx + len(hit) + models.ContextWindow
		if end > len(lower) {
			end = len(lower)
		}
		windows = append(windows, lower[start:end])
	}
	return windows
}
