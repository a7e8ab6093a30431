// -----------------------------------------------------------------------
// Confirmation - Evidence produced by the strict confirmation check
// -----------------------------------------------------------------------

package models

// PageSourceCap limits captured page source size. Confirmation pages are
// small; anything larger is mostly bundled script noise.
const PageSourceCap = 500_000

// ContextWindow is the number of characters captured on each side of a
// strict marker hit for the forensic record.
const ContextWindow = 120

// Confirmation is the outcome of one strict confirmation check.
type Confirmation struct {
	Confirmed  bool     `json:"confirmed"`
	StrictHits []string `json:"strict_hits"`      // Exact marker phrases found in page text
	CompatHits []string `json:"compat_additions"` // Derived umbrella labels, sorted
	URLMatch   bool     `json:"url_match"`
	FinalURL   string   `json:"final_url"`
}

// TextHits returns strict hits followed by the sorted compat labels, the
// combined list carried in the proof bundle.
func (c *Confirmation) TextHits() []string {
	hits := make([]string, 0, len(c.StrictHits)+len(c.CompatHits))
	hits = append(hits, c.StrictHits...)
	hits = append(hits, c.CompatHits...)
	return hits
}

// ForensicRecord is the per-hit evidence written alongside a confirmed
// attempt so the classification can be audited after the fact.
type ForensicRecord struct {
	Slug       string   `json:"slug"`
	Attempt    int      `json:"attempt"`
	StrictHits []string `json:"strict_hits"`
	CompatHits []string `json:"compat_additions"`
	URLMatch   bool     `json:"url_match"`
	FinalURL   string   `json:"final_url"`
	Contexts   []string `json:"contexts"` // Surrounding text windows, one per strict hit
}
