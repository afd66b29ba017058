package symcc

// dependencyForest partitions path constraints into groups that share input
// offsets, so a query only carries the constraints related to it.
type dependencyForest struct {
	parent map[uint64]uint64
	groups map[uint64][]Expr // root offset -> constraints
}

func newDependencyForest() *dependencyForest {
	return &dependencyForest{
		parent: make(map[uint64]uint64),
		groups: make(map[uint64][]Expr),
	}
}

// find returns the root of offset, adding it as its own root if unseen.
func (f *dependencyForest) find(offset uint64) uint64 {
	p, ok := f.parent[offset]
	if !ok {
		f.parent[offset] = offset
		return offset
	} else if p == offset {
		return offset
	}
	root := f.find(p)
	f.parent[offset] = root
	return root
}

func (f *dependencyForest) union(a, b uint64) uint64 {
	ra, rb := f.find(a), f.find(b)
	if ra == rb {
		return ra
	}
	// Keep the larger group as root.
	if len(f.groups[ra]) < len(f.groups[rb]) {
		ra, rb = rb, ra
	}
	f.parent[rb] = ra
	if g := f.groups[rb]; len(g) > 0 {
		f.groups[ra] = append(f.groups[ra], g...)
	}
	delete(f.groups, rb)
	return ra
}

// add records a constraint. Constraints with no dependencies are ignored.
func (f *dependencyForest) add(expr Expr) {
	deps := ExprDeps(expr)
	if len(deps) == 0 {
		return
	}
	root := f.find(deps[0])
	for _, offset := range deps[1:] {
		root = f.union(root, offset)
	}
	f.groups[root] = append(f.groups[root], expr)
}

// related returns the constraints sharing a group with any offset in deps.
func (f *dependencyForest) related(deps DependencySet) []Expr {
	var a []Expr
	seen := make(map[uint64]struct{})
	for _, offset := range deps {
		if _, ok := f.parent[offset]; !ok {
			continue
		}
		root := f.find(offset)
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		a = append(a, f.groups[root]...)
	}
	return a
}
