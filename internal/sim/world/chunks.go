package world

import (
	"sort"

	"voxelforge.ai/internal/sim/world/logic/mathx"
)

type ChunkKey struct {
	CX int
	CZ int
}

func (w *World) chunkOf(pos Vec3i) ChunkKey {
	n := w.tun.ChunkSize
	return ChunkKey{CX: mathx.FloorDiv(pos.X, n), CZ: mathx.FloorDiv(pos.Z, n)}
}

// Loaded reports whether the chunk containing pos is loaded.
func (w *World) Loaded(pos Vec3i) bool { return w.chunks[w.chunkOf(pos)] }

func (w *World) LoadChunk(k ChunkKey) { w.chunks[k] = true }

// UnloadChunk marks a chunk unloaded. Blocks in it keep their state but
// machines and pipes touching it stop ticking until it is loaded again.
func (w *World) UnloadChunk(k ChunkKey) { delete(w.chunks, k) }

func (w *World) LoadedChunks() []ChunkKey {
	out := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CX != out[j].CX {
			return out[i].CX < out[j].CX
		}
		return out[i].CZ < out[j].CZ
	})
	return out
}

func sortVecs(vs []Vec3i) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].X != vs[j].X {
			return vs[i].X < vs[j].X
		}
		if vs[i].Y != vs[j].Y {
			return vs[i].Y < vs[j].Y
		}
		return vs[i].Z < vs[j].Z
	})
}

func sortStrings(s []string) { sort.Strings(s) }

func sortedKeys[T any](m map[Vec3i]T) []Vec3i {
	out := make([]Vec3i, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sortVecs(out)
	return out
}
