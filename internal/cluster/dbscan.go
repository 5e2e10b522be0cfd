package cluster

import "sort"

const noiseLabel = -1

// dbscan runs density-based clustering over cosine distance. Points are
// visited in input order and neighborhoods are expanded in index order, so
// the labeling is fully deterministic for a fixed input. Clusters smaller
// than minClusterSize are demoted to noise, then surviving clusters are
// relabeled 0..k-1 by first member index.
func dbscan(points [][]float64, eps float64, minPts, minClusterSize int) []int {
	n := len(points)
	labels := make([]int, n)

	for i := range labels {
		labels[i] = noiseLabel
	}

	visited := make([]bool, n)
	next := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}

		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			continue
		}

		expandCluster(points, labels, visited, i, neighbors, next, eps, minPts)
		next++
	}

	return compactLabels(labels, minClusterSize)
}

func expandCluster(points [][]float64, labels []int, visited []bool, seed int, neighbors []int, label int, eps float64, minPts int) {
	labels[seed] = label

	queue := append([]int(nil), neighbors...)

	for head := 0; head < len(queue); head++ {
		p := queue[head]

		if !visited[p] {
			visited[p] = true

			more := regionQuery(points, p, eps)
			if len(more) >= minPts {
				queue = append(queue, more...)
			}
		}

		if labels[p] == noiseLabel {
			labels[p] = label
		}
	}
}

func regionQuery(points [][]float64, idx int, eps float64) []int {
	var neighbors []int

	for i := range points {
		if i == idx {
			continue
		}

		if cosineDistance(points[idx], points[i]) <= eps {
			neighbors = append(neighbors, i)
		}
	}

	return neighbors
}

// compactLabels demotes undersized clusters to noise and renumbers the rest
// by order of first appearance.
func compactLabels(labels []int, minClusterSize int) []int {
	sizes := make(map[int]int)

	for _, l := range labels {
		if l != noiseLabel {
			sizes[l]++
		}
	}

	remap := make(map[int]int)
	next := 0

	out := make([]int, len(labels))

	for i, l := range labels {
		if l == noiseLabel || sizes[l] < minClusterSize {
			out[i] = noiseLabel
			continue
		}

		if _, ok := remap[l]; !ok {
			remap[l] = next
			next++
		}

		out[i] = remap[l]
	}

	return out
}

// kDistanceEpsilon derives a neighborhood radius from the data when none is
// configured: the median distance to each point's k-th nearest neighbor.
// This is the standard k-distance heuristic for DBSCAN parameter selection.
func kDistanceEpsilon(points [][]float64, k int) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}

	// Clamp k into [1, n-1] so the k-th neighbor index always exists.
	if k >= n {
		k = n - 1
	}

	if k < 1 {
		k = 1
	}

	kDists := make([]float64, 0, n)

	for i := range points {
		dists := make([]float64, 0, n-1)

		for j := range points {
			if i == j {
				continue
			}

			dists = append(dists, cosineDistance(points[i], points[j]))
		}

		sort.Float64s(dists)
		kDists = append(kDists, dists[k-1])
	}

	sort.Float64s(kDists)

	return kDists[len(kDists)/2]
}
