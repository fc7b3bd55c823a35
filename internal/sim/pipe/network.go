package pipe

import "voxelforge.ai/internal/sim/world/kernel/model"

// Graph is the block view Discover walks.
type Graph interface {
	IsPipe(pos model.Vec3i) bool
	HasInventory(pos model.Vec3i) bool
}

// Discover walks the pipe segments connected to start (breadth first, capped
// at maxNodes segments) and returns every adjacent inventory other than
// source, with its path distance in blocks from start. Connections come back
// in discovery order.
func Discover(g Graph, start, source model.Vec3i, maxNodes int) []Connection {
	if maxNodes <= 0 || !g.IsPipe(start) {
		return nil
	}
	dist := map[model.Vec3i]int{start: 0}
	seen := map[model.Vec3i]bool{}
	q := []model.Vec3i{start}
	var out []Connection

	for len(q) > 0 {
		p := q[0]
		q = q[1:]
		for _, d := range model.Faces {
			np := p.Add(d)
			if np == source || seen[np] {
				continue
			}
			if _, ok := dist[np]; ok {
				continue
			}
			if g.IsPipe(np) {
				if len(dist) >= maxNodes {
					continue
				}
				dist[np] = dist[p] + 1
				q = append(q, np)
				continue
			}
			if g.HasInventory(np) {
				seen[np] = true
				out = append(out, Connection{Pos: np, Distance: dist[p] + 1})
			}
		}
	}
	return out
}
