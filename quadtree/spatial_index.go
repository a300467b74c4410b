package quadtree

// DebugInfo is a snapshot of the tree shape, collected by walking every
// node. ObjectRefs counts stored references, so an object indexed under
// several leaves counts once per leaf.
type DebugInfo struct {
	NodeCount  uint32
	LeafCount  uint32
	MaxDepth   uint32
	ObjectRefs uint32
	Occupancy  []uint32 // object references per depth, indexed by depth
}

// SpatialIndex is the surface a host interacts with to get collision
// candidates. *Tree implements it.
type SpatialIndex[T Object] interface {
	Insert(T) error
	Retrieve([]T, T) []T
	Clear()

	// debug stuff:
	DebugInfo() DebugInfo
}
