package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// cells render <br> as a visual break, keep the words apart
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// NormalizeText collapses runs of whitespace (including non-breaking spaces)
// into a single space and trims the ends.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Text returns the normalized text of the first node in a selection.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return NormalizeText(GetText(sel.Nodes[0]))
}

// Texts returns the normalized text of every node in a selection.
func Texts(sel *goquery.Selection) []string {
	out := make([]string, len(sel.Nodes))
	for i, n := range sel.Nodes {
		out[i] = NormalizeText(GetText(n))
	}
	return out
}
