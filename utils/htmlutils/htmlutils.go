// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrCharsetMismatch is returned when a text node holds a REPLACEMENT CHARACTER,
// which means the document was decoded with the wrong charset.
var ErrCharsetMismatch = errors.New("charset mismatch")

// line break marker inserted around block elements and at <br>.
const lineBreak = "\n"

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "dd": true, "div": true,
	"dl": true, "dt": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "li": true, "ol": true,
	"p": true, "section": true, "table": true, "td": true, "th": true, "tr": true,
	"ul": true,
}

// Text returns the text content of n. The trimmed text of every text node is
// joined with sep. Whitespace inside a node collapses to single spaces.
func Text(n *html.Node, sep string) (string, error) {
	var parts []string

	err := collectText(n, &parts)

	text := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != lineBreak {
			text = append(text, p)
		}
	}

	return strings.Join(text, sep), err
}

func collectText(n *html.Node, parts *[]string) error {
	switch n.Type {
	case html.TextNode:
		tmp := strings.Join(strings.Fields(n.Data), " ")
		if strings.ContainsRune(tmp, utf8.RuneError) {
			return fmt.Errorf("%w: `%s'", ErrCharsetMismatch, tmp)
		}

		if tmp != "" {
			*parts = append(*parts, tmp)
		}
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if tag == "script" || tag == "style" {
			return nil
		}

		if tag == "br" || blockElements[tag] {
			*parts = append(*parts, lineBreak)
		}

		if err := collectChildren(n, parts); err != nil {
			return err
		}

		if blockElements[tag] {
			*parts = append(*parts, lineBreak)
		}
	default:
		return collectChildren(n, parts)
	}

	return nil
}

func collectChildren(n *html.Node, parts *[]string) error {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := collectText(child, parts); err != nil {
			return err
		}
	}

	return nil
}

// Lines returns the text of n split on <br> and block elements, each line
// being its trimmed text nodes joined with a space.
func Lines(n *html.Node) ([]string, error) {
	var parts []string
	if err := collectText(n, &parts); err != nil {
		return nil, err
	}

	var (
		lines   []string
		current []string
	)

	flush := func() {
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
			current = nil
		}
	}

	for _, p := range parts {
		if p == lineBreak {
			flush()

			continue
		}

		current = append(current, p)
	}

	flush()

	return lines, nil
}

// Attr returns the value of the attribute key of n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}

	return "", false
}

// HasClass reports whether n is an element carrying class in its class list.
func HasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}

	classes, _ := Attr(n, "class")
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}

	return false
}

// FindAll returns the nodes under n, n included, for which match returns true,
// in document order. Matching nodes are not descended into.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var ret []*html.Node

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if match(n) {
			ret = append(ret, n)

			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	walk(n)

	return ret
}

// Element returns a matcher for elements with the given tag name.
func Element(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
	}
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}
