package xmltools

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// InvalidContentHashError reports a document whose embedded hash tag is
// absent or does not match the hash of its hashable text.
type InvalidContentHashError struct {
	Message string
}

func (e *InvalidContentHashError) Error() string { return e.Message }

// HashableText extracts the canonical hashable text of a document: the
// concatenation of every text node outside the <meta> subtree, with all
// whitespace removed, UTF-8 encoded.
func HashableText(raw []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, &NonXMLDocumentError{Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &NonXMLDocumentError{}
	}
	var b strings.Builder
	collectText(root, &b)
	return []byte(b.String()), nil
}

func collectText(el *etree.Element, b *strings.Builder) {
	for _, child := range el.Child {
		switch c := child.(type) {
		case *etree.CharData:
			for _, r := range c.Data {
				if !unicode.IsSpace(r) {
					b.WriteRune(r)
				}
			}
		case *etree.Element:
			if c.Tag == "meta" {
				continue
			}
			collectText(c, b)
		}
	}
}

// HashFromDocument computes the SHA-256 hex digest of the document's
// hashable text.
func HashFromDocument(raw []byte) (string, error) {
	text, err := HashableText(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(text)
	return hex.EncodeToString(sum[:]), nil
}

// ValidateContentHash verifies that the document's embedded uk:hash tag
// matches the hash of its hashable text. A mismatch or a missing tag
// fails with InvalidContentHashError.
func ValidateContentHash(raw []byte) error {
	accessor, err := NewAccessor(raw)
	if err != nil {
		return err
	}
	embedded, err := accessor.XPathString("//uk:hash", map[string]string{"uk": NamespaceUK}, "")
	if err != nil {
		return err
	}
	if embedded == "" {
		return &InvalidContentHashError{Message: "document did not have a content hash tag"}
	}
	computed, err := HashFromDocument(raw)
	if err != nil {
		return err
	}
	if embedded != computed {
		return &InvalidContentHashError{
			Message: fmt.Sprintf("content hash %s in document does not match computed hash %s", embedded, computed),
		}
	}
	return nil
}
