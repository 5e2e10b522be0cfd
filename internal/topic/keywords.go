// Package topic turns clustered items into stable, scored topic records:
// keyword extraction, signature assignment, aggregation, time bucketing, and
// narrative signal scoring.
package topic

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/okonma/trendminer/internal/core/domain"
	"github.com/okonma/trendminer/internal/normalize"
)

const minTokenLength = 3

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"up": true, "about": true, "into": true, "through": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"that": true, "which": true, "who": true, "whom": true, "this": true,
	"these": true, "those": true, "it": true, "its": true, "as": true,
	"after": true, "over": true, "under": true, "new": true, "more": true,
	"says": true, "said": true, "amid": true,
}

// Group indexes items by their assigned topic id.
func Group(items []domain.Item) map[int][]domain.Item {
	groups := make(map[int][]domain.Item)
	for _, item := range items {
		groups[item.TopicID] = append(groups[item.TopicID], item)
	}

	return groups
}

// ExtractKeywords ranks each cluster's terms by intra-cluster salience:
// term frequency within the cluster scaled by inverse cluster frequency, so
// terms every cluster shares rank low. Ties break on the term itself, which
// keeps the ranking deterministic.
func ExtractKeywords(groups map[int][]domain.Item, topN int) map[int][]string {
	clusterTF := make(map[int]map[string]int, len(groups))
	clusterFreq := make(map[string]int)

	for id, items := range groups {
		tf := make(map[string]int)

		for _, item := range items {
			for _, token := range tokenize(item.Text()) {
				tf[token]++
			}
		}

		clusterTF[id] = tf

		for token := range tf {
			clusterFreq[token]++
		}
	}

	total := float64(len(groups))
	keywords := make(map[int][]string, len(groups))

	for id, tf := range clusterTF {
		type scored struct {
			term  string
			score float64
		}

		ranked := make([]scored, 0, len(tf))

		for term, count := range tf {
			salience := float64(count) * math.Log(1+total/float64(clusterFreq[term]))
			ranked = append(ranked, scored{term: term, score: salience})
		}

		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}

			return ranked[i].term < ranked[j].term
		})

		n := topN
		if n > len(ranked) {
			n = len(ranked)
		}

		top := make([]string, n)
		for i := 0; i < n; i++ {
			top[i] = ranked[i].term
		}

		keywords[id] = top
	}

	return keywords
}

// tokenize splits normalized text into content-bearing terms.
func tokenize(text string) []string {
	text = normalize.NormalizeText(text)

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))

	for _, f := range fields {
		if len(f) < minTokenLength || stopWords[f] || isNumeric(f) {
			continue
		}

		tokens = append(tokens, f)
	}

	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}

	return true
}
