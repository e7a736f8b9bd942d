package render

import "sort"

// Edge is an undirected mesh edge with A < B.
type Edge struct{ A, B int }

// Edges returns the unique edges of a triangle list in ascending order.
func Edges(faces [][3]int) []Edge {
	seen := make(map[Edge]struct{}, len(faces)*3/2)
	for _, f := range faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			seen[Edge{a, b}] = struct{}{}
		}
	}

	edges := make([]Edge, 0, len(seen))
	for e := range seen {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}
