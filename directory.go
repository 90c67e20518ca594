package nds

// MaxNameLen is the longest entry name the directory table can
// record; the name length field is seven bits wide.
const MaxNameLen = 127

type node struct {
	name     string
	dir      bool
	parent   NodeRef
	children []NodeRef

	// file nodes only
	data   Range
	fileID uint16
}

func (t *Tree) checkName(parent NodeRef, name string) error {
	if !t.nodes[parent].dir {
		return Structuref("node %d is not a directory", parent)
	}
	if name == "" {
		return Structuref("empty entry name in directory %d", parent)
	}
	if len(name) > MaxNameLen {
		return Structuref("entry name %q is longer than %d bytes", name, MaxNameLen)
	}
	if _, ok := t.Lookup(parent, name); ok {
		return Structuref("duplicate entry name %q", name)
	}
	return nil
}

func (t *Tree) add(parent NodeRef, n node) NodeRef {
	ref := NodeRef(len(t.nodes))
	n.parent = parent
	t.nodes = append(t.nodes, n)
	t.nodes[parent].children = append(t.nodes[parent].children, ref)
	return ref
}

// AddDir appends a subdirectory to parent. Sibling names must be
// unique; insertion order is preserved and determines the ids
// assigned when the tree is serialized.
func (t *Tree) AddDir(parent NodeRef, name string) (NodeRef, error) {
	if err := t.checkName(parent, name); err != nil {
		return 0, err
	}
	return t.add(parent, node{name: name, dir: true}), nil
}

// AddFile appends a file entry to parent.
func (t *Tree) AddFile(parent NodeRef, name string) (NodeRef, error) {
	if err := t.checkName(parent, name); err != nil {
		return 0, err
	}
	return t.add(parent, node{name: name}), nil
}

// Lookup finds a direct child of parent by name.
func (t *Tree) Lookup(parent NodeRef, name string) (NodeRef, bool) {
	for _, c := range t.nodes[parent].children {
		if t.nodes[c].name == name {
			return c, true
		}
	}
	return 0, false
}

func (t *Tree) Name(ref NodeRef) string {
	return t.nodes[ref].name
}

func (t *Tree) IsDir(ref NodeRef) bool {
	return t.nodes[ref].dir
}

// Children returns the ordered child list of a directory node; the
// caller must not modify it.
func (t *Tree) Children(ref NodeRef) []NodeRef {
	return t.nodes[ref].children
}

func (t *Tree) Parent(ref NodeRef) NodeRef {
	return t.nodes[ref].parent
}

// Data returns the byte range of a file node within its container's
// data region. The range is a view descriptor; the tree never holds
// file contents.
func (t *Tree) Data(ref NodeRef) Range {
	return t.nodes[ref].data
}

func (t *Tree) SetData(ref NodeRef, r Range) {
	t.nodes[ref].data = r
}

// FileID returns the id assigned to a file node by the codec that
// parsed or built the tree.
func (t *Tree) FileID(ref NodeRef) uint16 {
	return t.nodes[ref].fileID
}

func (t *Tree) SetFileID(ref NodeRef, id uint16) {
	t.nodes[ref].fileID = id
}
