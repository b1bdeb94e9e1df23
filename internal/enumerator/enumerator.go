// Package enumerator walks the accessibility tree down to the desktop
// container and lists the icons placed on it.
package enumerator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iconwatch/iconwatch/pkg/automation"
)

const (
	// ShellName is the name of the desktop shell window under the tree root
	ShellName = "Program Manager"

	// DesktopName is the name of the icon container inside the shell window
	DesktopName = "Desktop"

	// lineSeparator terminates every name in the published list
	lineSeparator = "\r\n"
)

// ErrTreeLookup matches every TreeLookupError
var ErrTreeLookup = errors.New("desktop tree lookup failed")

// Result is the outcome of one successful enumeration. Count always equals len(Names).
type Result struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

// ListText renders the names one per line, each terminated by CRLF
func (r Result) ListText() string {
	var b strings.Builder
	for _, name := range r.Names {
		b.WriteString(name)
		b.WriteString(lineSeparator)
	}
	return b.String()
}

// CountText renders the count as decimal text
func (r Result) CountText() string {
	return strconv.Itoa(r.Count)
}

// TreeLookupError reports which step of the walk failed
type TreeLookupError struct {
	Step string
	Err  error
}

func (e *TreeLookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("desktop tree lookup failed at %s", e.Step)
	}
	return fmt.Sprintf("desktop tree lookup failed at %s: %v", e.Step, e.Err)
}

func (e *TreeLookupError) Unwrap() error {
	return e.Err
}

func (e *TreeLookupError) Is(target error) bool {
	return target == ErrTreeLookup
}

// Enumerator lists desktop icons from an accessibility tree
type Enumerator struct {
	tree automation.Tree
}

// New creates an enumerator over tree
func New(tree automation.Tree) *Enumerator {
	return &Enumerator{tree: tree}
}

// Enumerate walks root → "Program Manager" → "Desktop" and returns the
// desktop's direct children in tree order. Every failure, including a panic
// inside the platform binding, is returned as a *TreeLookupError.
func (e *Enumerator) Enumerate() (res Result, err error) {
	step := "root"
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &TreeLookupError{Step: step, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	root, err := e.tree.Root()
	if err == nil && root == nil {
		err = automation.ErrElementNotFound
	}
	if err != nil {
		return Result{}, &TreeLookupError{Step: step, Err: err}
	}
	defer root.Release()

	step = "shell"
	shell, err := root.FindFirstChildByName(ShellName)
	if err == nil && shell == nil {
		err = automation.ErrElementNotFound
	}
	if err != nil {
		return Result{}, &TreeLookupError{Step: step, Err: err}
	}
	defer shell.Release()

	step = "desktop"
	desktop, err := shell.FindFirstChildByName(DesktopName)
	if err == nil && desktop == nil {
		err = automation.ErrElementNotFound
	}
	if err != nil {
		return Result{}, &TreeLookupError{Step: step, Err: err}
	}
	defer desktop.Release()

	step = "children"
	children, err := desktop.FindAllChildren()
	if err != nil {
		return Result{}, &TreeLookupError{Step: step, Err: err}
	}
	defer func() {
		for _, c := range children {
			c.Release()
		}
	}()

	step = "name"
	names := make([]string, 0, len(children))
	for _, c := range children {
		name, err := c.Name()
		if err != nil {
			return Result{}, &TreeLookupError{Step: step, Err: err}
		}
		names = append(names, name)
	}

	return Result{Count: len(names), Names: names}, nil
}
