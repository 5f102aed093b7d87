package cache

// Keyer builds cache keys. Implementations must be deterministic: equal
// inputs produce equal keys across processes.
type Keyer interface {
	// LayoutKey identifies the tiles computed from a dataset.
	LayoutKey(datasetHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact of a layout.
	ArtifactKey(layoutKey string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the options that change the computed tiles.
type LayoutKeyOpts struct {
	Width        float64 `json:"w"`
	Height       float64 `json:"h"`
	MinPartition float64 `json:"min"`
	TopN         int     `json:"top,omitempty"`
	Rollup       bool    `json:"rollup,omitempty"`
	GroupBy      string  `json:"group,omitempty"`
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	NoLabels bool   `json:"no_labels,omitempty"`
	Cols     int    `json:"cols,omitempty"`
	Rows     int    `json:"rows,omitempty"`
}

// DefaultKeyer hashes options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(datasetHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", datasetHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(layoutKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutKey, opts)
}

var _ Keyer = DefaultKeyer{}
