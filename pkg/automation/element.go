// Package automation describes the accessibility tree the desktop scanner
// walks. Platform bindings implement Tree and Element; Node is an in-memory
// implementation used by the fixture backend and tests.
package automation

import "errors"

// ErrElementNotFound is returned when a name lookup has no match
var ErrElementNotFound = errors.New("element not found")

// Element is a node of the accessibility tree. Lookups only consider direct
// children, in the order the tree reports them.
type Element interface {
	// Name returns the element's display name
	Name() (string, error)

	// FindFirstChildByName returns the first direct child whose name equals name
	FindFirstChildByName(name string) (Element, error)

	// FindAllChildren returns every direct child in tree order
	FindAllChildren() ([]Element, error)

	// Release frees platform resources held by the element
	Release()
}

// Tree gives access to the root of the accessibility tree
type Tree interface {
	Root() (Element, error)
}
