// Package filetree projects a flat path listing into a folder/file tree and
// tracks which folders are expanded.
package filetree

import "strings"

// Kind tags a Node as a folder or a file.
type Kind int

const (
	KindFolder Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "folder"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is a folder or a file. A file's Path is the original listing key; a
// folder's Path is its accumulated path, "" for the root.
type Node struct {
	Kind     Kind    `json:"kind"`
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Language string  `json:"language,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Build creates the tree for paths in a single pass. Children keep the
// first-insertion order of the listing. A file and a folder may share a
// name; they are distinct children.
func Build(paths []string) *Node {
	root := &Node{Kind: KindFolder}
	folders := map[string]*Node{"": root}
	files := make(map[string]*Node, len(paths))

	for _, p := range paths {
		segments := strings.Split(p, "/")
		parent := root
		acc := ""
		for i, seg := range segments[:len(segments)-1] {
			if i == 0 {
				acc = seg
			} else {
				acc += "/" + seg
			}
			folder, ok := folders[acc]
			if !ok {
				folder = &Node{Kind: KindFolder, Name: seg, Path: acc}
				folders[acc] = folder
				parent.Children = append(parent.Children, folder)
			}
			parent = folder
		}
		if _, dup := files[p]; dup {
			continue
		}
		leaf := &Node{
			Kind:     KindFile,
			Name:     segments[len(segments)-1],
			Path:     p,
			Language: Language(p),
		}
		files[p] = leaf
		parent.Children = append(parent.Children, leaf)
	}
	return root
}

// Child returns the direct child with the given name and kind.
func (n *Node) Child(name string, kind Kind) *Node {
	for _, c := range n.Children {
		if c.Name == name && c.Kind == kind {
			return c
		}
	}
	return nil
}

// FilePaths returns every file path under n in depth-first order.
func (n *Node) FilePaths() []string {
	var out []string
	var walk func(*Node)
	walk = func(x *Node) {
		if x.Kind == KindFile {
			out = append(out, x.Path)
			return
		}
		for _, c := range x.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Row is one visible line of the rendered tree.
type Row struct {
	Depth    int   `json:"depth"`
	Node     *Node `json:"node"`
	Expanded bool  `json:"expanded,omitempty"`
}

// Rows lists the nodes visible under root given the expand state. The root
// itself is not listed; its children are at depth 0.
func Rows(root *Node, state *ExpandState) []Row {
	var rows []Row
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		for _, c := range n.Children {
			expanded := c.Kind == KindFolder && state.IsExpanded(c.Path)
			rows = append(rows, Row{Depth: depth, Node: leafView(c), Expanded: expanded})
			if expanded {
				walk(c, depth+1)
			}
		}
	}
	walk(root, 0)
	return rows
}

// leafView drops children so a row serializes as a single line.
func leafView(n *Node) *Node {
	if len(n.Children) == 0 {
		return n
	}
	cp := *n
	cp.Children = nil
	return &cp
}
