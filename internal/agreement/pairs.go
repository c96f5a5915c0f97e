package agreement

import (
	"slices"
	"strings"

	"github.com/ahrav/go-ragscore/internal/domain"
)

// PairCount tallies how often two raters agreed on the items they share.
type PairCount struct {
	// Pair is the two rater ids joined by "-" in sorted order.
	Pair          string `json:"pair"`
	Agreements    int    `json:"agreements"`
	Disagreements int    `json:"disagreements"`
}

// RaterPairs counts, for every rater pair, the shared items on which their
// first responses match exactly and those on which they differ. Pairs with
// no shared item are omitted. The result is sorted by pair.
func RaterPairs(triples []domain.RaterResponse) []PairCount {
	g := groupByRater(triples)
	var out []PairCount
	for i := 0; i < len(g.raters); i++ {
		for j := i + 1; j < len(g.raters); j++ {
			r1, r2 := g.raters[i], g.raters[j]
			shared := g.sharedItems(r1, r2)
			if len(shared) == 0 {
				continue
			}
			pair := []string{r1, r2}
			slices.Sort(pair)
			pc := PairCount{Pair: strings.Join(pair, "-")}
			for _, item := range shared {
				if g.byItem[r1][item] == g.byItem[r2][item] {
					pc.Agreements++
				} else {
					pc.Disagreements++
				}
			}
			out = append(out, pc)
		}
	}
	slices.SortFunc(out, func(a, b PairCount) int { return strings.Compare(a.Pair, b.Pair) })
	return out
}
