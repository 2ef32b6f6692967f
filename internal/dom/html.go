package dom

import (
	"html"
	"sort"
	"strings"
)

var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "meta": true, "link": true,
}

// HTML serializes id and its subtree. Attributes are emitted in sorted order
// after the class attribute so output is stable across runs.
func (d *Document) HTML(id NodeID) string {
	var b strings.Builder
	d.writeHTML(&b, id)
	return b.String()
}

// InnerHTML serializes the children of id.
func (d *Document) InnerHTML(id NodeID) string {
	var b strings.Builder
	for _, c := range d.Children(id) {
		d.writeHTML(&b, c)
	}
	return b.String()
}

func (d *Document) writeHTML(b *strings.Builder, id NodeID) {
	n, err := d.get(id)
	if err != nil {
		return
	}
	if n.kind == KindText {
		b.WriteString(html.EscapeString(string(n.text)))
		return
	}

	b.WriteByte('<')
	b.WriteString(n.tag)
	if len(n.classes) > 0 {
		b.WriteString(` class="`)
		b.WriteString(html.EscapeString(strings.Join(n.classes, " ")))
		b.WriteByte('"')
	}
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(n.attrs[k]))
		b.WriteByte('"')
	}
	if voidTags[n.tag] {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range n.children {
		d.writeHTML(b, c)
	}
	b.WriteString("</")
	b.WriteString(n.tag)
	b.WriteByte('>')
}
