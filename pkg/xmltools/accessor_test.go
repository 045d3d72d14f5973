package xmltools

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var akn = map[string]string{
	"akn": NamespaceAkomaNtoso,
	"uk":  NamespaceUK,
}

const judgmentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<akomaNtoso xmlns="http://docs.oasis-open.org/legaldocml/ns/akn/3.0" xmlns:uk="https://caselaw.nationalarchives.gov.uk/akn">
  <judgment name="judgment">
    <meta>
      <proprietary>
        <uk:court>UKSC</uk:court>
        <uk:hash>%s</uk:hash>
      </proprietary>
    </meta>
    <header>
      <p>A v B</p>
    </header>
  </judgment>
</akomaNtoso>`

func judgmentWithHash(hash string) []byte {
	return []byte(fmt.Sprintf(judgmentTemplate, hash))
}

func TestNewAccessor(t *testing.T) {
	t.Run("rejects non-XML input", func(t *testing.T) {
		_, err := NewAccessor([]byte("<not-closed"))
		var nonXML *NonXMLDocumentError
		assert.ErrorAs(t, err, &nonXML)
	})

	t.Run("rejects input with no root element", func(t *testing.T) {
		_, err := NewAccessor([]byte("just some text, no markup"))
		var nonXML *NonXMLDocumentError
		assert.ErrorAs(t, err, &nonXML)
	})

	t.Run("exposes root tag name", func(t *testing.T) {
		a, err := NewAccessor(judgmentWithHash("abc"))
		require.NoError(t, err)
		assert.Equal(t, "akomaNtoso", a.RootTagName())
	})
}

func TestXPathQueries(t *testing.T) {
	a, err := NewAccessor(judgmentWithHash("abc"))
	require.NoError(t, err)

	t.Run("single match", func(t *testing.T) {
		got, err := a.XPathString("//uk:court", akn, "")
		require.NoError(t, err)
		assert.Equal(t, "UKSC", got)
	})

	t.Run("fallback on no match", func(t *testing.T) {
		got, err := a.XPathString("//uk:jurisdiction", akn, "default")
		require.NoError(t, err)
		assert.Equal(t, "default", got)
	})

	t.Run("list of strings", func(t *testing.T) {
		got, err := a.XPathStrings("//akn:p", akn)
		require.NoError(t, err)
		assert.Equal(t, []string{"A v B"}, got)
	})

	t.Run("invalid expression errors", func(t *testing.T) {
		_, err := a.XPathString("//[", akn, "")
		assert.Error(t, err)
	})
}

type upperTransformer struct{}

func (upperTransformer) Transform(doc []byte) ([]byte, error) {
	return []byte("<html>" + fmt.Sprint(len(doc)) + "</html>"), nil
}

func TestTransform(t *testing.T) {
	a, err := NewAccessor(judgmentWithHash("abc"))
	require.NoError(t, err)
	out, err := a.Transform(upperTransformer{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<html>")
}

func TestHashableText(t *testing.T) {
	text, err := HashableText(judgmentWithHash("ignored"))
	require.NoError(t, err)
	// Text inside <meta> (court, hash) is excluded; whitespace stripped.
	assert.Equal(t, "AvB", string(text))
}

func TestValidateContentHash(t *testing.T) {
	sum := sha256.Sum256([]byte("AvB"))
	good := hex.EncodeToString(sum[:])

	t.Run("matching hash validates", func(t *testing.T) {
		assert.NoError(t, ValidateContentHash(judgmentWithHash(good)))
	})

	t.Run("round trip law", func(t *testing.T) {
		computed, err := HashFromDocument(judgmentWithHash(good))
		require.NoError(t, err)
		assert.Equal(t, good, computed)
	})

	t.Run("mismatch names both values", func(t *testing.T) {
		err := ValidateContentHash(judgmentWithHash("deadbeef"))
		var hashErr *InvalidContentHashError
		require.ErrorAs(t, err, &hashErr)
		assert.Contains(t, err.Error(), "deadbeef")
		assert.Contains(t, err.Error(), good)
	})

	t.Run("missing tag is a distinct message", func(t *testing.T) {
		doc := []byte(`<akomaNtoso xmlns:uk="https://caselaw.nationalarchives.gov.uk/akn"><judgment><header><p>A v B</p></header></judgment></akomaNtoso>`)
		err := ValidateContentHash(doc)
		var hashErr *InvalidContentHashError
		require.ErrorAs(t, err, &hashErr)
		assert.Contains(t, err.Error(), "did not have a content hash tag")
	})
}
