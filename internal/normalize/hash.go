package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	itemIDLength     = 16
	configHashLength = 16
	signatureTopN    = 10
)

// NormalizeText lowercases, NFC-normalizes, and collapses whitespace in text
// so that cosmetic differences never change a content hash.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ToLower(strings.TrimSpace(text))

	return strings.Join(strings.Fields(text), " ")
}

// ContentHash derives the dedup identity hash for an item from its title and
// summary.
func ContentHash(title, summary string) string {
	normalized := NormalizeText(title + " " + summary)
	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:])
}

// ItemID derives a stable item identifier from a canonical URL.
func ItemID(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))

	return hex.EncodeToString(sum[:])[:itemIDLength]
}

// TopicSignature derives a content-stable topic identifier from a cluster's
// top keywords. The keywords are normalized and sorted before hashing, so the
// signature is independent of keyword ranking order and of the clusterer's
// arbitrary numeric labels.
func TopicSignature(keywords []string) string {
	top := make([]string, 0, signatureTopN)

	for _, kw := range keywords {
		kw = NormalizeText(kw)
		if kw == "" {
			continue
		}

		top = append(top, kw)
		if len(top) == signatureTopN {
			break
		}
	}

	sort.Strings(top)

	payload, _ := json.Marshal(map[string][]string{"kw": top})
	sum := sha256.Sum256(payload)

	return hex.EncodeToString(sum[:])
}

// ConfigHash derives a short audit hash over a stable subset of the run
// configuration. encoding/json sorts map keys, so the hash is independent of
// map iteration order.
func ConfigHash(stable map[string]any) string {
	payload, _ := json.Marshal(stable)
	sum := sha256.Sum256(payload)

	return hex.EncodeToString(sum[:])[:configHashLength]
}
