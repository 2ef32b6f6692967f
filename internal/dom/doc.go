// Package dom provides the document arena that editor extensions mutate.
//
// A Document owns every node. Nodes are addressed by NodeID handles rather
// than pointers, so a handle held by an extension can never keep a subtree
// alive after the host has removed it; instead operations on a removed node
// report ErrDetached.
//
// # Nodes
//
// There are two node kinds:
//
//   - Element nodes have a lowercase tag name, attributes, an ordered class
//     list and children.
//   - Text nodes hold rune content and have no children.
//
// # Points and Ranges
//
// A Point follows DOM boundary-point semantics: in a text node Offset is a
// rune index, in an element Offset is a child index. A Range is an ordered
// pair of Points; a collapsed Range is a caret.
//
// # Structural cleanup
//
// Mutations that can leave split or empty text nodes behind (Unwrap,
// SurroundContents, removal of boundary markers) are paired with
// MergeAdjacentText, which also rewrites any caller-supplied Points so a
// caret survives the cleanup.
//
// # Geometry
//
// Layout assigns every laid-out node a Rect in a monospace cell model:
// block elements start new lines, text advances by the display width of its
// grapheme clusters and wraps at the layout width.
//
// # Thread Safety
//
// A Document is not safe for concurrent use. Editor hosts serialize all
// access on their event loop.
package dom
