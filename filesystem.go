package nds

// Tree is the in-memory form of a Nitro virtual filesystem. Nodes
// live in an arena and refer to each other by index, so there are no
// parent pointers and no cycles to manage. Node 0 is always the root
// directory.
//
// A Tree built by a codec is treated as immutable afterwards; it is
// safe to share between concurrent readers.
type Tree struct {
	nodes []node
}

// NodeRef addresses a node within its Tree's arena.
type NodeRef uint32

// RootRef is the NodeRef of the root directory of any Tree.
const RootRef NodeRef = 0

// Range is a byte range [Start, End) into a flat data region.
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) Len() uint32 {
	return r.End - r.Start
}

func NewTree() *Tree {
	return &Tree{
		nodes: []node{{dir: true}},
	}
}

// Len returns the number of nodes in the tree, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// NumFiles counts the file nodes in the tree.
func (t *Tree) NumFiles() int {
	n := 0
	for i := range t.nodes {
		if !t.nodes[i].dir {
			n++
		}
	}
	return n
}

// NumDirs counts the directory nodes, root included.
func (t *Tree) NumDirs() int {
	n := 0
	for i := range t.nodes {
		if t.nodes[i].dir {
			n++
		}
	}
	return n
}

// Walk visits every node below the root depth-first, parents before
// children, siblings in insertion order. The path is slash-separated
// and relative to the root. Returning an error from cb stops the walk.
//
// The traversal is stack-based rather than recursive.
func (t *Tree) Walk(cb func(path string, ref NodeRef) error) error {
	type frame struct {
		ref  NodeRef
		path string
		next int
	}
	stack := []frame{{ref: RootRef}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		children := t.nodes[f.ref].children
		if f.next >= len(children) {
			stack = stack[:len(stack)-1]
			continue
		}
		child := children[f.next]
		f.next++

		path := t.nodes[child].name
		if f.path != "" {
			path = f.path + "/" + path
		}
		if err := cb(path, child); err != nil {
			return err
		}
		if t.nodes[child].dir {
			stack = append(stack, frame{ref: child, path: path})
		}
	}
	return nil
}
