package topic

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/okonma/trendminer/internal/core/domain"
	"github.com/okonma/trendminer/internal/normalize"
)

// AssignSignatures derives a content-stable signature for every cluster.
// The signature comes from the cluster's sorted top keywords, not from its
// numeric label, so re-running the pipeline on the same item set reproduces
// the same signatures even when label numbering differs.
//
// When two clusters in the same run collide on keyword content, the later
// one (by ascending cluster id) is disambiguated by rehashing with its
// volume and, if needed, an attempt counter. Two clusters never share a
// signature.
func AssignSignatures(groups map[int][]domain.Item, keywords map[int][]string) map[int]string {
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	taken := make(map[string]bool, len(ids))
	signatures := make(map[int]string, len(ids))

	for _, id := range ids {
		sig := normalize.TopicSignature(keywords[id])

		for attempt := 0; taken[sig]; attempt++ {
			sig = rehash(sig, fmt.Sprintf("vol:%d:%d", len(groups[id]), attempt))
		}

		taken[sig] = true
		signatures[id] = sig
	}

	return signatures
}

// ApplySignatures stamps each item with its cluster's signature.
func ApplySignatures(items []domain.Item, signatures map[int]string) {
	for i := range items {
		items[i].TopicSignature = signatures[items[i].TopicID]
	}
}

func rehash(sig, discriminator string) string {
	sum := sha256.Sum256([]byte(sig + ":" + discriminator))

	return hex.EncodeToString(sum[:])
}
