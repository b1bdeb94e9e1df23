package automation

import "sync/atomic"

// Node is an in-memory Element. A non-nil Err makes every operation on the
// node fail with it, which models a busy or restarting accessibility provider.
type Node struct {
	Label    string  `yaml:"name"`
	Children []*Node `yaml:"children,omitempty"`
	Err      error   `yaml:"-"`

	releases atomic.Int32
}

// NewNode builds a node with the given children
func NewNode(label string, children ...*Node) *Node {
	return &Node{Label: label, Children: children}
}

func (n *Node) Name() (string, error) {
	if n.Err != nil {
		return "", n.Err
	}
	return n.Label, nil
}

func (n *Node) FindFirstChildByName(name string) (Element, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	for _, c := range n.Children {
		if c != nil && c.Label == name {
			return c, nil
		}
	}
	return nil, ErrElementNotFound
}

func (n *Node) FindAllChildren() ([]Element, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	out := make([]Element, 0, len(n.Children))
	for _, c := range n.Children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (n *Node) Release() {
	n.releases.Add(1)
}

// Releases reports how many times Release was called on this node
func (n *Node) Releases() int {
	return int(n.releases.Load())
}

// StaticTree is a Tree over a fixed Node hierarchy
type StaticTree struct {
	Top *Node
	Err error
}

func (t *StaticTree) Root() (Element, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	if t.Top == nil {
		return nil, ErrElementNotFound
	}
	return t.Top, nil
}
