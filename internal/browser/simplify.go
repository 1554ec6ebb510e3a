package browser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
)

// clickableRoles are the ARIA roles treated as clickable even on otherwise
// inert tags.
var clickableRoles = map[string]bool{
	"button":   true,
	"link":     true,
	"tab":      true,
	"menuitem": true,
}

// skippedInputTypes never appear in the simplified page: they are either
// clickables (submit, button, reset) or invisible (hidden).
var skippedInputTypes = map[string]bool{
	"submit": true,
	"button": true,
	"reset":  true,
	"hidden": true,
}

// Simplify reduces an HTML document to the snapshot handed to the perception
// module, and returns the name to CSS selector mapping used to resolve
// element names back to live nodes when an action executes.
func Simplify(doc *html.Node, pageURL string) (*schemas.PageSnapshot, map[string]string) {
	snap := &schemas.PageSnapshot{
		URL:        pageURL,
		Clickables: []schemas.ClickableElement{},
		Inputs:     []schemas.InputElement{},
		TextBlocks: []schemas.TextBlock{},
	}
	selectors := make(map[string]string)
	labels := collectLabels(doc)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if snap.Title == "" {
					snap.Title = nodeText(n)
				}
			case "a":
				addClickable(snap, selectors, n, "link")
			case "button":
				addClickable(snap, selectors, n, "button")
			case "input":
				inputType := strings.ToLower(attr(n, "type"))
				if inputType == "" {
					inputType = "text"
				}
				switch {
				case inputType == "submit" || inputType == "button" || inputType == "reset":
					addClickable(snap, selectors, n, "button")
				case inputType == "hidden":
					// skip
				default:
					addInput(snap, selectors, n, inputType, labels)
				}
			case "textarea", "select":
				inputType := n.Data
				addInput(snap, selectors, n, inputType, labels)
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if text := nodeText(n); text != "" {
					snap.TextBlocks = append(snap.TextBlocks, schemas.TextBlock{
						Type: "heading",
						Tag:  n.Data,
						Text: text,
					})
				}
				// Headings were consumed whole; no need to descend.
				maybeAddRoleClickable(snap, selectors, n)
				return
			case "p":
				if text := nodeText(n); text != "" {
					snap.TextBlocks = append(snap.TextBlocks, schemas.TextBlock{
						Type: "paragraph",
						Text: text,
					})
				}
				maybeAddRoleClickable(snap, selectors, n)
				return
			case "ul", "ol":
				var items []string
				for _, li := range findAll(n, "li") {
					if text := nodeText(li); text != "" {
						items = append(items, text)
					}
				}
				if len(items) > 0 {
					snap.TextBlocks = append(snap.TextBlocks, schemas.TextBlock{
						Type:  "list",
						Tag:   n.Data,
						Items: items,
					})
				}
				return
			default:
				maybeAddRoleClickable(snap, selectors, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return snap, selectors
}

func maybeAddRoleClickable(snap *schemas.PageSnapshot, selectors map[string]string, n *html.Node) {
	if role := strings.ToLower(attr(n, "role")); clickableRoles[role] {
		addClickable(snap, selectors, n, role)
	}
}

func addClickable(snap *schemas.PageSnapshot, selectors map[string]string, n *html.Node, elemType string) {
	text := nodeText(n)
	if n.Data == "input" && text == "" {
		text = attr(n, "value")
	}
	if text == "" && attr(n, "aria-label") == "" && attr(n, "title") == "" {
		return
	}

	name := elementName(n, text, elemType)
	if _, dup := selectors[name]; dup {
		return
	}

	description := fmt.Sprintf("%s: %s", capitalize(elemType), text)
	if text == "" {
		fallback := attr(n, "aria-label")
		if fallback == "" {
			fallback = attr(n, "title")
		}
		description = fmt.Sprintf("%s: %s", capitalize(elemType), fallback)
	}

	selectors[name] = cssPath(n)
	snap.Clickables = append(snap.Clickables, schemas.ClickableElement{
		Name:        name,
		Type:        elemType,
		Text:        text,
		Description: description,
	})
}

func addInput(snap *schemas.PageSnapshot, selectors map[string]string, n *html.Node, inputType string, labels map[string]string) {
	labelText := ""
	if id := attr(n, "id"); id != "" {
		labelText = labels[id]
	}
	if labelText == "" {
		labelText = attr(n, "placeholder")
	}
	if labelText == "" {
		labelText = attr(n, "name")
	}
	if labelText == "" {
		labelText = attr(n, "aria-label")
	}

	name := elementName(n, labelText, inputType)
	if _, dup := selectors[name]; dup {
		return
	}

	description := fmt.Sprintf("%s field", capitalize(inputType))
	if labelText != "" {
		description += fmt.Sprintf(" labeled '%s'", labelText)
	}

	selectors[name] = cssPath(n)
	snap.Inputs = append(snap.Inputs, schemas.InputElement{
		Name:        name,
		Type:        inputType,
		Label:       labelText,
		Description: description,
	})
}

// elementName derives a stable, human-readable identifier for an element.
// Preference order: id attribute, name attribute, visible text, aria-label,
// and finally a content hash so every element still gets a unique handle.
func elementName(n *html.Node, text, elemType string) string {
	if id := attr(n, "id"); id != "" {
		return elemType + "_" + slugify(id)
	}
	if nameAttr := attr(n, "name"); nameAttr != "" {
		return elemType + "_" + slugify(nameAttr)
	}
	if text != "" {
		if slug := slugify(strings.TrimSpace(truncateRunes(text, 20))); slug != "" {
			return elemType + "_" + slug
		}
	}
	if aria := attr(n, "aria-label"); aria != "" {
		return elemType + "_" + slugify(strings.TrimSpace(truncateRunes(aria, 20)))
	}

	var sb strings.Builder
	html.Render(&sb, n)
	sum := sha256.Sum256([]byte(sb.String()))
	return elemType + "_" + hex.EncodeToString(sum[:])[:8]
}

// cssPath builds a selector resolving n within its document. It shortcuts
// through the nearest id-bearing ancestor when one exists.
func cssPath(n *html.Node) string {
	var segments []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if id := attr(cur, "id"); id != "" {
			segments = append(segments, fmt.Sprintf("#%s", id))
			break
		}
		segments = append(segments, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur)))
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}

func nthOfType(n *html.Node) int {
	nth := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			nth++
		}
	}
	return nth
}

// collectLabels maps input ids to their <label for=...> text.
func collectLabels(doc *html.Node) map[string]string {
	labels := make(map[string]string)
	for _, label := range findAll(doc, "label") {
		if forAttr := attr(label, "for"); forAttr != "" {
			if text := nodeText(label); text != "" {
				labels[forAttr] = text
			}
		}
	}
	return labels
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(cur *html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.ElementNode && cur.Data == tag {
			out = append(out, cur)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText returns the concatenated text content with whitespace collapsed.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(cur *html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			sb.WriteString(cur.Data)
			sb.WriteString(" ")
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func slugify(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		case r == ' ' || r == '-':
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
