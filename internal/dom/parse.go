package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML builds a document from an HTML fragment. The fragment's nodes
// become children of the document root; a top-level <body> tag contributes
// its attributes to the root instead of nesting.
func ParseHTML(src string) (*Document, error) {
	d := New()
	if err := d.AppendHTML(d.Root(), src); err != nil {
		return nil, err
	}
	return d, nil
}

// AppendHTML parses src and appends the resulting nodes to parent.
func (d *Document) AppendHTML(parent NodeID, src string) error {
	if _, err := d.element(parent); err != nil {
		return err
	}
	z := html.NewTokenizer(strings.NewReader(src))
	stack := []NodeID{parent}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return fmt.Errorf("parse html: %w", z.Err())

		case html.TextToken:
			text := string(z.Text())
			if text == "" {
				continue
			}
			if err := d.AppendChild(stack[len(stack)-1], d.CreateText(text)); err != nil {
				return err
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			var el NodeID
			if tag == "body" && len(stack) == 1 && parent == d.root {
				el = d.root
			} else {
				el = d.CreateElement(tag)
			}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				_ = d.SetAttr(el, string(k), string(v))
			}
			if el == d.root {
				continue
			}
			if err := d.AppendChild(stack[len(stack)-1], el); err != nil {
				return err
			}
			if tt == html.StartTagToken && !voidTags[tag] {
				stack = append(stack, el)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(stack) - 1; i > 0; i-- {
				if d.Tag(stack[i]) == tag {
					stack = stack[:i]
					break
				}
			}
		}
	}
}
