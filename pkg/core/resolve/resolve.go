// Package resolve turns per-site partition cells into the adjacency mapping
// between source and target geometries.
//
// Two geometries are adjacent when the unions of their sites' cell vertex
// sets intersect, that is when some region vertex is equidistant to a site of
// each and closer to those than to any other site. Obstacle sites take part
// in the partition and so can separate geometries, but never appear in the
// result.
package resolve

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/geom"
	"github.com/matzehuels/geoadjacency/pkg/core/index"
	"github.com/matzehuels/geoadjacency/pkg/core/partition"
)

// Input is everything the resolver needs from earlier stages.
type Input struct {
	Index     *index.Index
	Partition *partition.Partition
	// Layers give the slot count of every role. The target layer length
	// decides between source-target and source-source mode.
	Layers []geom.Layer
	// Originals are the clipped, undensified geometries used for the
	// distance filter. Required only when MaxDistance is set.
	Originals   []geom.Layer
	MaxDistance *float64
	Logger      *log.Logger
}

// Sets holds the vertex set union of every geometry slot, per role. Absent
// geometries have an empty set.
type Sets map[geom.Role][]partition.VertexSet

// Aggregate unions the cells of every site into its owning geometry's set.
func Aggregate(idx *index.Index, cells []partition.VertexSet, layers []geom.Layer) Sets {
	collected := make(map[geom.Role][][]int, len(layers))
	for _, l := range layers {
		collected[l.Role] = make([][]int, l.Len())
	}
	for _, s := range idx.Sites() {
		if s.ID >= len(cells) {
			continue
		}
		slots := collected[s.Role]
		if s.Geometry < len(slots) {
			slots[s.Geometry] = append(slots[s.Geometry], cells[s.ID]...)
		}
	}

	out := make(Sets, len(collected))
	for role, slots := range collected {
		out[role] = make([]partition.VertexSet, len(slots))
		for i, ids := range slots {
			out[role][i] = partition.NewVertexSet(ids...)
		}
	}
	return out
}

// Resolve computes the adjacency mapping.
func Resolve(in Input) Mapping {
	logger := in.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	m := Mapping{}
	if in.Index == nil || in.Partition == nil {
		return m
	}

	sets := Aggregate(in.Index, in.Partition.Cells, in.Layers)
	sources := sets[geom.Source]
	targets := sets[geom.Target]

	maxDist := math.Inf(1)
	if in.MaxDistance != nil {
		maxDist = *in.MaxDistance
	}
	originals := make(map[geom.Role][]orb.Geometry)
	for _, l := range in.Originals {
		originals[l.Role] = append(originals[l.Role], l.Geometries...)
	}
	near := func(si int, tr geom.Role, ti int) bool {
		if in.MaxDistance == nil {
			return true
		}
		return geom.Distance(slot(originals[geom.Source], si), slot(originals[tr], ti)) <= maxDist
	}

	filtered := 0
	if targetSlots(in.Layers) == 0 {
		logger.Debug("resolving source-source adjacency", "sources", len(sources))
		for i := range sources {
			for j := i + 1; j < len(sources); j++ {
				if !sources[i].Intersects(sources[j]) {
					continue
				}
				if !near(i, geom.Source, j) {
					filtered++
					continue
				}
				m.add(i, j)
				m.add(j, i)
			}
		}
	} else {
		logger.Debug("resolving source-target adjacency", "sources", len(sources), "targets", len(targets))
		for i := range sources {
			for j := range targets {
				if !sources[i].Intersects(targets[j]) {
					continue
				}
				if !near(i, geom.Target, j) {
					filtered++
					continue
				}
				m.add(i, j)
			}
		}
	}
	if in.MaxDistance != nil {
		logger.Debug("distance filter applied", "max_distance", maxDist, "dropped", filtered)
	}

	m.normalize()
	return m
}

func targetSlots(layers []geom.Layer) int {
	n := 0
	for _, l := range layers {
		if l.Role == geom.Target {
			n += l.Len()
		}
	}
	return n
}

func slot(gs []orb.Geometry, i int) orb.Geometry {
	if i < len(gs) {
		return gs[i]
	}
	return nil
}

// Mapping maps a source index to the sorted indices of adjacent targets, or
// of adjacent sources when no targets were given. Sources without any
// neighbor are absent.
type Mapping map[int][]int

func (m Mapping) add(k, v int) { m[k] = append(m[k], v) }

func (m Mapping) normalize() {
	for k, v := range m {
		m[k] = []int(partition.NewVertexSet(v...))
	}
}

// Keys returns the source indices in ascending order.
func (m Mapping) Keys() []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Len returns the number of sources with at least one neighbor.
func (m Mapping) Len() int { return len(m) }

// Pair is one adjacency relation.
type Pair struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Pairs returns every relation ordered by source then target.
func (m Mapping) Pairs() []Pair {
	var out []Pair
	for _, k := range m.Keys() {
		for _, v := range m[k] {
			out = append(out, Pair{Source: k, Target: v})
		}
	}
	return out
}

// Has reports whether source is adjacent to target.
func (m Mapping) Has(source, target int) bool {
	return partition.VertexSet(m[source]).Contains(target)
}

// MarshalJSON writes keys in numeric order so equal mappings encode to
// identical bytes.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(k)))
		buf.WriteByte(':')
		v, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw map[string][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Mapping, len(raw))
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil {
			return err
		}
		out[i] = v
	}
	*m = out
	return nil
}
