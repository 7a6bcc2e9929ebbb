package doctree

// Heading is a heading element of a source document.
type Heading interface {
	Level() int      // 1..6
	Text() string    // Visible label
	ID() string      // Anchor id, empty when the element has none
	SetID(id string) // Writes the anchor id back to the element
}

// Outline is the nested list structure mirroring the heading hierarchy.
// A nil Root is the empty-state marker: the document has no headings.
type Outline struct {
	Root *List
}

// List is one container of the outline. Its items are either entries or
// containers nested directly (a level jump with no entry to hang them on).
type List struct {
	Items []Item
}

// Item holds exactly one of Node or List.
type Item struct {
	Node *OutlineNode
	List *List
}

// OutlineNode is a single outline entry.
type OutlineNode struct {
	Level    int
	Label    string
	AnchorID string
	Children *List // Nested container, nil when no deeper heading follows
}

// Empty reports whether the outline has no entries.
func (o Outline) Empty() bool {
	return o.Root == nil || o.Count() == 0
}

// Walk visits every entry in pre-order. depth is the nesting depth of the
// entry's container, starting at 1 for the root container.
func (o Outline) Walk(fn func(n *OutlineNode, depth int)) {
	if o.Root != nil {
		o.Root.walk(1, fn)
	}
}

func (l *List) walk(depth int, fn func(n *OutlineNode, depth int)) {
	for _, it := range l.Items {
		switch {
		case it.Node != nil:
			fn(it.Node, depth)
			if it.Node.Children != nil {
				it.Node.Children.walk(depth+1, fn)
			}
		case it.List != nil:
			it.List.walk(depth+1, fn)
		}
	}
}

// Count returns the total number of entries.
func (o Outline) Count() int {
	n := 0
	o.Walk(func(*OutlineNode, int) { n++ })
	return n
}

// Anchors returns entry anchors in document order.
func (o Outline) Anchors() []string {
	var out []string
	o.Walk(func(n *OutlineNode, _ int) { out = append(out, n.AnchorID) })
	return out
}

// Contains reports whether some entry links to anchor.
func (o Outline) Contains(anchor string) bool {
	found := false
	o.Walk(func(n *OutlineNode, _ int) {
		if n.AnchorID == anchor {
			found = true
		}
	})
	return found
}

// LastNode returns the last entry directly in l, or nil.
func (l *List) LastNode() *OutlineNode {
	for i := len(l.Items) - 1; i >= 0; i-- {
		if l.Items[i].Node != nil {
			return l.Items[i].Node
		}
	}
	return nil
}
