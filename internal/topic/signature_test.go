package topic

import (
	"testing"

	"github.com/okonma/trendminer/internal/core/domain"
)

func TestAssignSignaturesStableAcrossLabels(t *testing.T) {
	itemsA := titled(0, "fed rates decision")
	itemsB := titled(1, "oil supply glut")
	keywordsA := []string{"fed", "rates", "decision"}
	keywordsB := []string{"oil", "supply", "glut"}

	first := AssignSignatures(
		map[int][]domain.Item{0: itemsA, 1: itemsB},
		map[int][]string{0: keywordsA, 1: keywordsB},
	)

	// Same content under swapped numeric labels must yield the same
	// signatures, attached to the swapped ids.
	second := AssignSignatures(
		map[int][]domain.Item{0: itemsB, 1: itemsA},
		map[int][]string{0: keywordsB, 1: keywordsA},
	)

	if first[0] != second[1] || first[1] != second[0] {
		t.Errorf("signatures depend on numeric labels: %v vs %v", first, second)
	}
}

func TestAssignSignaturesCollision(t *testing.T) {
	kws := []string{"fed", "rates"}

	groups := map[int][]domain.Item{
		0: titled(0, "a", "b", "c"),
		1: titled(1, "d", "e"),
	}
	keywords := map[int][]string{0: kws, 1: kws}

	signatures := AssignSignatures(groups, keywords)

	if signatures[0] == signatures[1] {
		t.Fatal("colliding keyword sets must yield distinct signatures")
	}

	// The lower id keeps the direct keyword signature.
	direct := AssignSignatures(
		map[int][]domain.Item{0: groups[0]},
		map[int][]string{0: kws},
	)

	if signatures[0] != direct[0] {
		t.Errorf("cluster 0 signature = %q, want direct keyword signature %q", signatures[0], direct[0])
	}
}

func TestAssignSignaturesCollisionDeterministic(t *testing.T) {
	kws := []string{"fed", "rates"}

	groups := map[int][]domain.Item{
		0: titled(0, "a"),
		1: titled(1, "b"),
		2: titled(2, "c"),
	}
	keywords := map[int][]string{0: kws, 1: kws, 2: kws}

	first := AssignSignatures(groups, keywords)

	for i := 0; i < 5; i++ {
		again := AssignSignatures(groups, keywords)

		for id := range first {
			if first[id] != again[id] {
				t.Fatalf("run %d signature[%d] = %q, want %q", i, id, again[id], first[id])
			}
		}
	}

	seen := map[string]bool{}
	for _, sig := range first {
		if seen[sig] {
			t.Fatalf("duplicate signature within run: %v", first)
		}

		seen[sig] = true
	}
}

func TestApplySignatures(t *testing.T) {
	items := []domain.Item{
		{ItemID: "a", TopicID: 0},
		{ItemID: "b", TopicID: 1},
		{ItemID: "c", TopicID: 0},
	}

	ApplySignatures(items, map[int]string{0: "sig-zero", 1: "sig-one"})

	want := []string{"sig-zero", "sig-one", "sig-zero"}
	for i, item := range items {
		if item.TopicSignature != want[i] {
			t.Errorf("item %s signature = %q, want %q", item.ItemID, item.TopicSignature, want[i])
		}
	}
}
