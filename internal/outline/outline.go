// Package outline turns a flat, ordered run of headings into a nested
// outline.
package outline

import (
	"fmt"

	"github.com/dgallion1/tocbar/internal/doctree"
)

// AnchorPrefix is the prefix of generated anchor ids.
const AnchorPrefix = "heading-"

// AssignAnchors gives every heading without an id the id
// heading-<ordinal>, where ordinal is its 0-based document position.
// Existing ids are never overwritten.
func AssignAnchors(headings []doctree.Heading) {
	for i, h := range headings {
		if h.ID() == "" {
			h.SetID(fmt.Sprintf("%s%d", AnchorPrefix, i))
		}
	}
}

// Build constructs the outline in a single pass over headings.
//
// The stack holds the chain of open containers; its depth is the nesting
// level of the container at the top. Headings must already carry anchors
// (see AssignAnchors).
func Build(headings []doctree.Heading) doctree.Outline {
	if len(headings) == 0 {
		return doctree.Outline{}
	}

	var root *doctree.List
	var stack []*doctree.List

	for _, h := range headings {
		level := clampLevel(h.Level())

		for len(stack) < level {
			list := &doctree.List{}
			if len(stack) == 0 {
				root = list
			} else {
				top := stack[len(stack)-1]
				if last := top.LastNode(); last != nil {
					last.Children = list
				} else {
					top.Items = append(top.Items, doctree.Item{List: list})
				}
			}
			stack = append(stack, list)
		}

		for len(stack) > level {
			stack = stack[:len(stack)-1]
		}

		top := stack[len(stack)-1]
		top.Items = append(top.Items, doctree.Item{Node: &doctree.OutlineNode{
			Level:    level,
			Label:    h.Text(),
			AnchorID: h.ID(),
		}})
	}

	return doctree.Outline{Root: root}
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}
