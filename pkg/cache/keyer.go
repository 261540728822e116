package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Keyer derives cache keys.
type Keyer interface {
	// AnalysisKey identifies an adjacency analysis of one input.
	AnalysisKey(inputHash string, opts AnalysisKeyOpts) string
	// ArtifactKey identifies one rendered output of one analysis.
	ArtifactKey(analysisHash string, opts ArtifactKeyOpts) string
}

// AnalysisKeyOpts holds every option that changes the adjacency mapping.
type AnalysisKeyOpts struct {
	BoundingBox      []float64 `json:"bounding_box,omitempty"`
	DensifyFeatures  bool      `json:"densify_features"`
	MaxSegmentLength *float64  `json:"max_segment_length,omitempty"`
	MaxDistance      *float64  `json:"max_distance,omitempty"`
	Partitioner      string    `json:"partitioner"`
}

// ArtifactKeyOpts holds the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Title  string `json:"title,omitempty"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// AnalysisKey implements [Keyer].
func (DefaultKeyer) AnalysisKey(inputHash string, opts AnalysisKeyOpts) string {
	return hashKey("analysis", inputHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(analysisHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", analysisHash, opts)
}

// Hash returns the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns "prefix:" followed by the hash of the JSON encoding of parts.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}
