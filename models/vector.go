package models

// Node is one labeled element's feature values. A nil entry is a null feature:
// its rule produced no value for this node.
type Node struct {
	Features []*float64 `json:"features"`
}

// NullPositions returns the indices of absent feature values.
func (n Node) NullPositions() []int {
	var positions []int
	for i, value := range n.Features {
		if value == nil {
			positions = append(positions, i)
		}
	}
	return positions
}

// FeatureVector is the trainee service's answer for one page.
type FeatureVector struct {
	Nodes []Node `json:"nodes"`
}

// OutputHeader describes how to read the pages of an OutputDocument.
type OutputHeader struct {
	Version      int      `json:"version"`
	FeatureNames []string `json:"featureNames"`
}

// OutputDocument is the downloaded corpus snapshot.
type OutputDocument struct {
	Header OutputHeader    `json:"header"`
	Pages  []FeatureVector `json:"pages"`
}

// OutputVersion is the only document version written.
const OutputVersion = 1
