package index

import (
	"math"
	"sort"
)

// vectorIndex performs exact nearest-neighbor lookup by cosine similarity
// over the embedded entries. Embeddings are stored unit-normalized so
// cosine reduces to a dot product.
type vectorIndex struct {
	ids        []int // positions into the snapshot entry slice
	embeddings [][]float32
}

func newVectorIndex(entries []Entry) *vectorIndex {
	v := &vectorIndex{}
	for i, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		v.ids = append(v.ids, i)
		v.embeddings = append(v.embeddings, normalize(e.Embedding))
	}
	return v
}

// search returns up to k entry positions with their cosine similarity,
// descending. Ties resolve to the earlier document position.
func (v *vectorIndex) search(query []float32, k int) []scored {
	if len(v.ids) == 0 || len(query) == 0 || k <= 0 {
		return nil
	}

	q := normalize(query)
	results := make([]scored, 0, len(v.ids))
	for i, emb := range v.embeddings {
		if len(emb) != len(q) {
			continue
		}
		results = append(results, scored{entry: v.ids[i], score: dot(q, emb)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].entry < results[j].entry
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

type scored struct {
	entry int
	score float64
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := 1 / math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
