// Package xmltools wraps the parsed XML representation of a stored
// document. An Accessor parses the bytes exactly once and answers
// namespace-mapped XPath queries over the result; the content hash
// helpers verify a document's embedded hash tag against its canonical
// hashable text.
package xmltools

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Common namespace URIs used by Find Case Law documents.
const (
	NamespaceAkomaNtoso = "http://docs.oasis-open.org/legaldocml/ns/akn/3.0"
	NamespaceUK         = "https://caselaw.nationalarchives.gov.uk/akn"
)

// NonXMLDocumentError reports that a byte buffer offered as a document
// could not be parsed as XML.
type NonXMLDocumentError struct {
	Err error
}

func (e *NonXMLDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document is not valid XML: %v", e.Err)
	}
	return "document is not valid XML: no root element"
}

func (e *NonXMLDocumentError) Unwrap() error { return e.Err }

// Transformer converts a document's canonical bytes into another
// representation, typically HTML via an external XSLT engine. Rendering
// engines are collaborators, not part of this library.
type Transformer interface {
	Transform(doc []byte) ([]byte, error)
}

// Accessor is a read-only view over a parsed XML document.
type Accessor struct {
	doc  *xmlquery.Node
	root *xmlquery.Node
}

// NewAccessor parses raw exactly once. Malformed or element-free input
// fails with NonXMLDocumentError.
func NewAccessor(raw []byte) (*Accessor, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &NonXMLDocumentError{Err: err}
	}
	var root *xmlquery.Node
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			root = n
			break
		}
	}
	if root == nil {
		return nil, &NonXMLDocumentError{}
	}
	return &Accessor{doc: doc, root: root}, nil
}

// RootTagName returns the local name of the document's root element.
func (a *Accessor) RootTagName() string {
	return a.root.Data
}

// Bytes returns the canonical serialisation of the parsed tree.
func (a *Accessor) Bytes() []byte {
	return []byte(a.doc.OutputXML(false))
}

// Transform applies t to the canonical serialisation.
func (a *Accessor) Transform(t Transformer) ([]byte, error) {
	out, err := t.Transform(a.Bytes())
	if err != nil {
		return nil, fmt.Errorf("transform failed: %w", err)
	}
	return out, nil
}

func (a *Accessor) compile(expr string, namespaces map[string]string) (*xpath.Expr, error) {
	compiled, err := xpath.CompileWithNS(expr, namespaces)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return compiled, nil
}

// XPathString evaluates expr and returns the text of the first match,
// or fallback when nothing matches. Namespace prefixes used in expr
// must appear in namespaces; the accessor assumes no defaults.
func (a *Accessor) XPathString(expr string, namespaces map[string]string, fallback string) (string, error) {
	compiled, err := a.compile(expr, namespaces)
	if err != nil {
		return "", err
	}
	node := xmlquery.QuerySelector(a.doc, compiled)
	if node == nil {
		return fallback, nil
	}
	return node.InnerText(), nil
}

// XPathStrings evaluates expr and returns the text of every match in
// document order.
func (a *Accessor) XPathStrings(expr string, namespaces map[string]string) ([]string, error) {
	nodes, err := a.XPathNodes(expr, namespaces)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.InnerText())
	}
	return out, nil
}

// XPathNodes evaluates expr and returns every matching node in document
// order.
func (a *Accessor) XPathNodes(expr string, namespaces map[string]string) ([]*xmlquery.Node, error) {
	compiled, err := a.compile(expr, namespaces)
	if err != nil {
		return nil, err
	}
	return xmlquery.QuerySelectorAll(a.doc, compiled), nil
}
