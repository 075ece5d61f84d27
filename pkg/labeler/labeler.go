// Package labeler supports hand-labeling elements of a page: it computes an
// element's index path and sends the label to the page's tab.
package labeler

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/dtnitsch/corpus-collector/pkg/messaging"
)

// ErrNoElement is returned when a selector matches nothing.
var ErrNoElement = errors.New("labeler: no element matches selector")

// TypeLabel is the message type carrying a label.
const TypeLabel = "label"

// ElementPath returns the index path of the first element matching selector.
//
// The path is innermost first: [1, 4, 0] means the element is the 1st child
// of the 4th child of the document's 0th element (usually <html>). Only
// element children are counted.
func ElementPath(doc *goquery.Document, selector string) ([]int, error) {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoElement, selector)
	}
	return NodePath(sel.Get(0)), nil
}

// NodePath returns the index path from n up to the root.
func NodePath(n *html.Node) []int {
	path := []int{}
	for ; n.Parent != nil; n = n.Parent {
		path = append(path, elementIndex(n))
	}
	return path
}

func elementIndex(n *html.Node) int {
	i := 0
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib == n {
			return i
		}
		if sib.Type == html.ElementNode {
			i++
		}
	}
	return i
}

// LabelRequest attaches a label to the element at ElementPath in a tab.
type LabelRequest struct {
	Type        string `json:"type"`
	TabID       int    `json:"tabId"`
	ElementPath []int  `json:"elementPath"`
	Label       string `json:"label"`
}

// Client sends labels over a messaging channel.
type Client struct {
	requester messaging.Requester
}

func NewClient(r messaging.Requester) *Client {
	return &Client{requester: r}
}

// Label sends label for the element at path in tabID.
func (c *Client) Label(ctx context.Context, tabID int, path []int, label string) error {
	req := LabelRequest{Type: TypeLabel, TabID: tabID, ElementPath: path, Label: label}
	if err := c.requester.Request(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to label element in tab %d: %w", tabID, err)
	}
	return nil
}
