package widget

import (
	"github.com/dgallion1/tocbar/internal/doctree"
	"github.com/dgallion1/tocbar/internal/dom"
	"github.com/dgallion1/tocbar/internal/i18n"
	"golang.org/x/net/html"
)

// Element ids and classes shared with the stylesheet and browser client.
const (
	ToggleID        = "toc-btn-toggle-sidebar"
	PanelID         = "toc-sidebar"
	PanelClass      = "toc-sidebar-wrapper"
	TocClass        = "toc"
	PlaceholderID   = "toc-no-headings"
	LanguageID      = "toc-language"
	LanguageClass   = "toc-language"
	ClassMaxWidth   = "toc-max-width-limit"
	ClassHidden     = "toc-sidebar-hidden"
	ClassToggleSide = "toc-sm-position-absolute"
	ClassActive     = "active"
)

const toggleGlyph = "☰"

func buildToggle(lang i18n.Locale) *html.Node {
	btn := dom.Element("button",
		"id", ToggleID,
		"type", "button",
		"aria-label", lang.Text(i18n.ToggleLabel),
		"title", lang.Text(i18n.ToggleLabel),
	)
	btn.AppendChild(dom.Text(toggleGlyph))
	return btn
}

// buildPanel renders the sidebar and returns it with its links by anchor.
func buildPanel(o doctree.Outline, lang i18n.Locale) (*html.Node, map[string]*html.Node) {
	wrapper := dom.Element("div", "id", PanelID, "class", PanelClass)
	toc := dom.Element("div", "class", TocClass)
	wrapper.AppendChild(toc)
	wrapper.AppendChild(buildLanguageSwitcher(lang))

	header := dom.Element("h1")
	header.AppendChild(dom.Text(lang.Text(i18n.SidebarHeader)))
	toc.AppendChild(header)

	links := make(map[string]*html.Node)
	if o.Empty() {
		p := dom.Element("p", "id", PlaceholderID)
		p.AppendChild(dom.Text(lang.Text(i18n.NoHeadings)))
		toc.AppendChild(p)
		return wrapper, links
	}
	toc.AppendChild(buildList(o.Root, links))
	return wrapper, links
}

func buildList(l *doctree.List, links map[string]*html.Node) *html.Node {
	ul := dom.Element("ul")
	for _, it := range l.Items {
		if it.List != nil {
			ul.AppendChild(buildList(it.List, links))
			continue
		}
		n := it.Node
		li := dom.Element("li")
		a := dom.Element("a", "href", "#"+n.AnchorID, "data-anchor", n.AnchorID)
		a.AppendChild(dom.Text(n.Label))
		li.AppendChild(a)
		if n.Children != nil {
			li.AppendChild(buildList(n.Children, links))
		}
		ul.AppendChild(li)
		links[n.AnchorID] = a
	}
	return ul
}

// buildLanguageSwitcher lists every supported locale under its own name.
func buildLanguageSwitcher(current i18n.Locale) *html.Node {
	box := dom.Element("div", "class", LanguageClass)
	label := dom.Element("label", "for", LanguageID)
	label.AppendChild(dom.Text(current.Text(i18n.LanguageLabel)))
	box.AppendChild(label)

	sel := dom.Element("select", "id", LanguageID)
	for _, l := range i18n.Supported {
		opt := dom.Element("option", "value", string(l), "lang", string(l))
		if l == current {
			dom.SetAttr(opt, "selected", "")
		}
		opt.AppendChild(dom.Text(l.Name()))
		sel.AppendChild(opt)
	}
	box.AppendChild(sel)
	return box
}
