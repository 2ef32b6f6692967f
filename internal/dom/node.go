package dom

import (
	"strings"
)

// NodeID is a handle to a node owned by a Document.
type NodeID int32

// InvalidNode is the zero handle. It never refers to a node.
const InvalidNode NodeID = 0

// Kind identifies the type of a node.
type Kind uint8

const (
	// KindElement is an element node.
	KindElement Kind = iota + 1
	// KindText is a text node.
	KindText
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

type node struct {
	kind     Kind
	tag      string
	attrs    map[string]string
	classes  []string
	text     []rune
	parent   NodeID
	children []NodeID
}

// Document is an arena of element and text nodes rooted at a body element.
type Document struct {
	nodes []node
	root  NodeID
}

// New creates an empty document whose root is a "body" element.
func New() *Document {
	d := &Document{nodes: make([]node, 1, 64)}
	d.root = d.CreateElement("body")
	return d
}

// Root returns the document root element.
func (d *Document) Root() NodeID {
	return d.root
}

// CreateElement creates a detached element with the given tag.
func (d *Document) CreateElement(tag string) NodeID {
	d.nodes = append(d.nodes, node{
		kind: KindElement,
		tag:  strings.ToLower(tag),
	})
	return NodeID(len(d.nodes) - 1)
}

// CreateText creates a detached text node.
func (d *Document) CreateText(s string) NodeID {
	d.nodes = append(d.nodes, node{
		kind: KindText,
		text: []rune(s),
	})
	return NodeID(len(d.nodes) - 1)
}

func (d *Document) get(id NodeID) (*node, error) {
	if id <= 0 || int(id) >= len(d.nodes) {
		return nil, ErrNodeNotFound
	}
	return &d.nodes[id], nil
}

func (d *Document) element(id NodeID) (*node, error) {
	n, err := d.get(id)
	if err != nil {
		return nil, err
	}
	if n.kind != KindElement {
		return nil, ErrNotElement
	}
	return n, nil
}

func (d *Document) textNode(id NodeID) (*node, error) {
	n, err := d.get(id)
	if err != nil {
		return nil, err
	}
	if n.kind != KindText {
		return nil, ErrNotText
	}
	return n, nil
}

// Valid reports whether id refers to a node of this document.
func (d *Document) Valid(id NodeID) bool {
	_, err := d.get(id)
	return err == nil
}

// Kind returns the node kind, or 0 for an invalid handle.
func (d *Document) Kind(id NodeID) Kind {
	n, err := d.get(id)
	if err != nil {
		return 0
	}
	return n.kind
}

// IsElement reports whether id is an element.
func (d *Document) IsElement(id NodeID) bool {
	return d.Kind(id) == KindElement
}

// IsText reports whether id is a text node.
func (d *Document) IsText(id NodeID) bool {
	return d.Kind(id) == KindText
}

// Tag returns the lowercase tag of an element, or "" for anything else.
func (d *Document) Tag(id NodeID) string {
	n, err := d.element(id)
	if err != nil {
		return ""
	}
	return n.tag
}

// Parent returns the parent of id, or InvalidNode.
func (d *Document) Parent(id NodeID) NodeID {
	n, err := d.get(id)
	if err != nil {
		return InvalidNode
	}
	return n.parent
}

// Children returns a copy of the child list of id.
func (d *Document) Children(id NodeID) []NodeID {
	n, err := d.get(id)
	if err != nil || len(n.children) == 0 {
		return nil
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of children of id.
func (d *Document) ChildCount(id NodeID) int {
	n, err := d.get(id)
	if err != nil {
		return 0
	}
	return len(n.children)
}

// Child returns the i-th child of id, or InvalidNode.
func (d *Document) Child(id NodeID, i int) NodeID {
	n, err := d.get(id)
	if err != nil || i < 0 || i >= len(n.children) {
		return InvalidNode
	}
	return n.children[i]
}

// FirstChild returns the first child of id, or InvalidNode.
func (d *Document) FirstChild(id NodeID) NodeID {
	return d.Child(id, 0)
}

// LastChild returns the last child of id, or InvalidNode.
func (d *Document) LastChild(id NodeID) NodeID {
	return d.Child(id, d.ChildCount(id)-1)
}

// IndexOf returns the index of id within its parent, or -1 when detached.
func (d *Document) IndexOf(id NodeID) int {
	p := d.Parent(id)
	if p == InvalidNode {
		return -1
	}
	for i, c := range d.nodes[p].children {
		if c == id {
			return i
		}
	}
	return -1
}

// PrevSibling returns the previous sibling of id, or InvalidNode.
func (d *Document) PrevSibling(id NodeID) NodeID {
	i := d.IndexOf(id)
	if i <= 0 {
		return InvalidNode
	}
	return d.nodes[d.Parent(id)].children[i-1]
}

// NextSibling returns the next sibling of id, or InvalidNode.
func (d *Document) NextSibling(id NodeID) NodeID {
	i := d.IndexOf(id)
	if i < 0 {
		return InvalidNode
	}
	return d.Child(d.Parent(id), i+1)
}

// Contains reports whether n is ancestor or a descendant of ancestor
// (a node contains itself).
func (d *Document) Contains(ancestor, n NodeID) bool {
	if !d.Valid(ancestor) {
		return false
	}
	for cur := n; cur != InvalidNode; cur = d.Parent(cur) {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// IsAttached reports whether id is reachable from the document root.
func (d *Document) IsAttached(id NodeID) bool {
	return d.Contains(d.root, id)
}

// Closest returns the nearest inclusive ancestor of id for which match
// returns true, or InvalidNode.
func (d *Document) Closest(id NodeID, match func(NodeID) bool) NodeID {
	for cur := id; cur != InvalidNode; cur = d.Parent(cur) {
		if match(cur) {
			return cur
		}
	}
	return InvalidNode
}

// Walk visits id and its descendants in document order. Returning false
// from fn skips the children of the visited node.
func (d *Document) Walk(id NodeID, fn func(NodeID) bool) {
	if !d.Valid(id) {
		return
	}
	if !fn(id) {
		return
	}
	for _, c := range d.Children(id) {
		d.Walk(c, fn)
	}
}

// FindAll returns the descendants of root (inclusive) matching pred in
// document order.
func (d *Document) FindAll(root NodeID, pred func(NodeID) bool) []NodeID {
	var out []NodeID
	d.Walk(root, func(id NodeID) bool {
		if pred(id) {
			out = append(out, id)
		}
		return true
	})
	return out
}

// ByClass returns the elements under root carrying class.
func (d *Document) ByClass(root NodeID, class string) []NodeID {
	return d.FindAll(root, func(id NodeID) bool {
		return d.HasClass(id, class)
	})
}

// ByTag returns the elements under root with the given tag.
func (d *Document) ByTag(root NodeID, tag string) []NodeID {
	tag = strings.ToLower(tag)
	return d.FindAll(root, func(id NodeID) bool {
		return d.Tag(id) == tag
	})
}

// Attr returns an attribute value.
func (d *Document) Attr(id NodeID, name string) (string, bool) {
	n, err := d.element(id)
	if err != nil {
		return "", false
	}
	if name == "class" {
		if len(n.classes) == 0 {
			return "", false
		}
		return strings.Join(n.classes, " "), true
	}
	v, ok := n.attrs[name]
	return v, ok
}

// SetAttr sets an attribute. Setting "class" replaces the class list.
func (d *Document) SetAttr(id NodeID, name, value string) error {
	n, err := d.element(id)
	if err != nil {
		return err
	}
	if name == "class" {
		n.classes = n.classes[:0]
		for _, c := range strings.Fields(value) {
			n.addClass(c)
		}
		return nil
	}
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	return nil
}

// RemoveAttr removes an attribute.
func (d *Document) RemoveAttr(id NodeID, name string) {
	n, err := d.element(id)
	if err != nil {
		return
	}
	if name == "class" {
		n.classes = nil
		return
	}
	delete(n.attrs, name)
}

// Attrs returns a copy of the attributes of an element (excluding class).
func (d *Document) Attrs(id NodeID) map[string]string {
	n, err := d.element(id)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// Classes returns a copy of the class list of an element.
func (d *Document) Classes(id NodeID) []string {
	n, err := d.element(id)
	if err != nil {
		return nil
	}
	return append([]string(nil), n.classes...)
}

// HasClass reports whether the element carries class.
func (d *Document) HasClass(id NodeID, class string) bool {
	n, err := d.element(id)
	if err != nil || class == "" {
		return false
	}
	for _, c := range n.classes {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds classes to an element. Empty names are ignored.
func (d *Document) AddClass(id NodeID, classes ...string) error {
	n, err := d.element(id)
	if err != nil {
		return err
	}
	for _, c := range classes {
		n.addClass(c)
	}
	return nil
}

// RemoveClass removes classes from an element.
func (d *Document) RemoveClass(id NodeID, classes ...string) {
	n, err := d.element(id)
	if err != nil {
		return
	}
	for _, c := range classes {
		for i, have := range n.classes {
			if have == c {
				n.classes = append(n.classes[:i], n.classes[i+1:]...)
				break
			}
		}
	}
}

func (n *node) addClass(c string) {
	if c == "" {
		return
	}
	for _, have := range n.classes {
		if have == c {
			return
		}
	}
	n.classes = append(n.classes, c)
}
