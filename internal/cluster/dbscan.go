package cluster

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Noise is the label of points that belong to no dense region.
const Noise = 0

// DBSCAN labels each point with a cluster id starting at 1, or Noise.
// A point's eps-neighbourhood includes the point itself; a point is a core
// point when that neighbourhood holds at least minPts points. Points are
// visited in input order and border points join the first cluster that
// reaches them, so the labelling is deterministic.
func DBSCAN(points [][]float64, eps float64, minPts int) []int {
	labels := make([]int, len(points))
	if len(points) == 0 {
		return labels
	}
	idx := newIndex(points)
	visited := make([]bool, len(points))
	next := 0
	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true
		seeds := idx.region(points[i], eps)
		if len(seeds) < minPts {
			continue
		}
		next++
		labels[i] = next
		for q := 0; q < len(seeds); q++ {
			j := seeds[q]
			if labels[j] == Noise {
				labels[j] = next
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			if nb := idx.region(points[j], eps); len(nb) >= minPts {
				seeds = append(seeds, nb...)
			}
		}
	}
	return labels
}

// index answers fixed-radius neighbourhood queries with a k-d tree.
type index struct {
	tree *kdtree.Tree
	row  map[*float64]int
}

func newIndex(points [][]float64) *index {
	pts := make(kdtree.Points, len(points))
	row := make(map[*float64]int, len(points))
	for i, p := range points {
		pts[i] = kdtree.Point(p)
		row[&p[0]] = i
	}
	// kdtree.New reorders pts; the row map keys on backing arrays, which
	// stay put.
	return &index{tree: kdtree.New(pts, false), row: row}
}

// region returns the rows within eps of q, in ascending distance order.
func (x *index) region(q []float64, eps float64) []int {
	// Point.Distance is the squared Euclidean distance.
	keep := kdtree.NewDistKeeper(eps * eps)
	x.tree.NearestSet(keep, kdtree.Point(q))
	out := make([]int, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(kdtree.Point)
		out = append(out, x.row[&p[0]])
	}
	return out
}
