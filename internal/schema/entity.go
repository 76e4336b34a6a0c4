package schema

import (
	"fmt"
	"time"

	"codegraph/internal/identity"
)

// Node is a persisted graph vertex. Labels[0] is the primary kind; further
// labels are derived tags such as Metacognitive.
type Node struct {
	NodeID        string     `json:"nodeId"`
	CodebaseID    string     `json:"codebaseId"`
	Labels        []string   `json:"labels"`
	Properties    Properties `json:"properties,omitempty"`
	Hash          string     `json:"hash,omitempty"`
	SchemaVersion string     `json:"schemaVersion,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewNode creates a node of kind owned by codebaseID. Its id is derived from
// (codebaseID, kind, key), so the same entity always gets the same id.
func NewNode(codebaseID string, kind NodeKind, key string, props Properties) *Node {
	if props == nil {
		props = Properties{}
	}
	return &Node{
		NodeID:     identity.Compose(codebaseID, string(kind), key),
		CodebaseID: codebaseID,
		Labels:     []string{string(kind)},
		Properties: props,
	}
}

// Kind returns the primary kind of the node.
func (n *Node) Kind() NodeKind {
	if n == nil || len(n.Labels) == 0 {
		return ""
	}
	return NodeKind(n.Labels[0])
}

func (n *Node) HasLabel(label NodeKind) bool {
	for _, l := range n.Labels {
		if l == string(label) {
			return true
		}
	}
	return false
}

// AddLabel appends label unless the node already carries it.
func (n *Node) AddLabel(label NodeKind) {
	if !n.HasLabel(label) {
		n.Labels = append(n.Labels, string(label))
	}
}

// Relationship is a directed, typed edge. It belongs to the codebase of its
// start node; the cross-codebase fields describe both endpoint codebases.
type Relationship struct {
	NodeID           string     `json:"nodeId"`
	CodebaseID       string     `json:"codebaseId"`
	Type             RelType    `json:"type"`
	StartNodeID      string     `json:"startNodeId"`
	EndNodeID        string     `json:"endNodeId"`
	Properties       Properties `json:"properties,omitempty"`
	Hash             string     `json:"hash,omitempty"`
	SchemaVersion    string     `json:"schemaVersion,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	IsCrossCodebase  bool       `json:"isCrossCodebase"`
	SourceCodebaseID string     `json:"sourceCodebaseId,omitempty"`
	TargetCodebaseID string     `json:"targetCodebaseId,omitempty"`
}

// RelationshipKey is the in-scope key of the relationship between start and end.
func RelationshipKey(startNodeID, endNodeID string) string {
	return startNodeID + "->" + endNodeID
}

// NewRelationship creates a relationship of type t. Codebase ownership and the
// cross-codebase fields are derived from the endpoint identifiers.
func NewRelationship(t RelType, startNodeID, endNodeID string, props Properties) (*Relationship, error) {
	source, err := identity.Codebase(startNodeID)
	if err != nil {
		return nil, fmt.Errorf("relationship %s start: %w", t, err)
	}
	target, err := identity.Codebase(endNodeID)
	if err != nil {
		return nil, fmt.Errorf("relationship %s end: %w", t, err)
	}
	if props == nil {
		props = Properties{}
	}
	return &Relationship{
		NodeID:           identity.Compose(source, string(t), RelationshipKey(startNodeID, endNodeID)),
		CodebaseID:       source,
		Type:             t,
		StartNodeID:      startNodeID,
		EndNodeID:        endNodeID,
		Properties:       props,
		IsCrossCodebase:  source != target,
		SourceCodebaseID: source,
		TargetCodebaseID: target,
	}, nil
}
