package identifiers

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/beevik/etree"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// Collection is a document's identifier set: keyed by UUID, ordered by
// insertion, unique by value-and-namespace.
type Collection struct {
	order  []string
	byUUID map[string]*Identifier
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{byUUID: make(map[string]*Identifier)}
}

// Add inserts i unless an entry that is SameAs i already exists.
// Adding the same identifier twice never duplicates.
func (c *Collection) Add(i *Identifier) {
	if c.Contains(i) {
		return
	}
	c.byUUID[i.UUID] = i
	c.order = append(c.order, i.UUID)
}

// Delete removes the entry with the given UUID, if present.
func (c *Collection) Delete(uuid string) {
	if _, ok := c.byUUID[uuid]; !ok {
		return
	}
	delete(c.byUUID, uuid)
	for n, id := range c.order {
		if id == uuid {
			c.order = append(c.order[:n], c.order[n+1:]...)
			break
		}
	}
}

// Contains reports whether the collection holds an entry SameAs i.
func (c *Collection) Contains(i *Identifier) bool {
	for _, id := range c.order {
		if c.byUUID[id].SameAs(i) {
			return true
		}
	}
	return false
}

// Get returns the entry with the given UUID.
func (c *Collection) Get(uuid string) (*Identifier, bool) {
	i, ok := c.byUUID[uuid]
	return i, ok
}

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.order) }

// All returns every entry in insertion order.
func (c *Collection) All() []*Identifier {
	out := make([]*Identifier, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byUUID[id])
	}
	return out
}

// OfType returns the entries in the given namespace, in insertion order.
// An empty namespace matches everything.
func (c *Collection) OfType(namespace string) []*Identifier {
	out := make([]*Identifier, 0, len(c.order))
	for _, id := range c.order {
		i := c.byUUID[id]
		if namespace == "" || i.Schema.Namespace() == namespace {
			out = append(out, i)
		}
	}
	return out
}

// DeleteType removes every entry in the given namespace.
func (c *Collection) DeleteType(namespace string) {
	for _, i := range c.OfType(namespace) {
		c.Delete(i.UUID)
	}
}

// ByScore returns the entries in the given namespace (empty for all)
// sorted by descending score; ties keep insertion order.
func (c *Collection) ByScore(namespace string) []*Identifier {
	out := c.OfType(namespace)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score() > out[b].Score()
	})
	return out
}

// Preferred returns the highest-scoring entry in the given namespace
// (empty for all), or nil when there is none.
func (c *Collection) Preferred(namespace string) *Identifier {
	ranked := c.ByScore(namespace)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}

// Pack serialises the collection to its stored XML form:
//
//	<identifiers>
//	  <identifier><namespace/><uuid/><value/><deprecated/><url_slug/></identifier>
//	  ...
//	</identifiers>
func (c *Collection) Pack() (*etree.Element, error) {
	root := etree.NewElement("identifiers")
	for _, i := range c.All() {
		slug, err := i.URLSlug()
		if err != nil {
			return nil, fmt.Errorf("cannot pack identifier %s: %w", i, err)
		}
		el := root.CreateElement("identifier")
		el.CreateElement("namespace").SetText(i.Schema.Namespace())
		el.CreateElement("uuid").SetText(i.UUID)
		el.CreateElement("value").SetText(i.Value)
		el.CreateElement("deprecated").SetText(strconv.FormatBool(i.Deprecated))
		el.CreateElement("url_slug").SetText(slug)
	}
	return root, nil
}

// PackXML serialises the collection to bytes.
func (c *Collection) PackXML() ([]byte, error) {
	root, err := c.Pack()
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.SetRoot(root)
	return doc.WriteToBytes()
}

// UnpackXML reconstructs a collection from its stored XML form using
// the registry's namespace map. Entries in unknown namespaces are
// skipped with a warning for forward compatibility.
func UnpackXML(raw []byte, registry *Registry, logger hclog.Logger) (*Collection, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, &InvalidXMLRepresentationError{Reason: err.Error()}
	}
	root := doc.Root()
	if root == nil || root.Tag != "identifiers" {
		return nil, &InvalidXMLRepresentationError{Reason: "root element is not <identifiers>"}
	}

	c := NewCollection()
	for _, el := range root.SelectElements("identifier") {
		namespace := childText(el, "namespace")
		if namespace == "" {
			return nil, &InvalidXMLRepresentationError{Reason: "identifier entry has no namespace"}
		}
		schema, ok := registry.Lookup(namespace)
		if !ok {
			logger.Warn("skipping identifier in unknown namespace", "namespace", namespace)
			continue
		}
		id := childText(el, "uuid")
		value := childText(el, "value")
		if id == "" || value == "" {
			return nil, &InvalidXMLRepresentationError{
				Reason: fmt.Sprintf("identifier entry in namespace %s is missing uuid or value", namespace),
			}
		}
		opts := []Option{WithUUID(id)}
		if childText(el, "deprecated") == "true" {
			opts = append(opts, AsDeprecated())
		}
		identifier, err := New(schema, value, opts...)
		if err != nil {
			return nil, fmt.Errorf("stored identifier %s in namespace %s is invalid: %w", value, namespace, err)
		}
		c.Add(identifier)
	}
	return c, nil
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return child.Text()
}

// ValidationContext supplies the collection's surroundings for
// cross-system checks.
type ValidationContext struct {
	// DocumentURI is the owning document; resolutions back to it do not
	// count as global duplicates.
	DocumentURI uri.DocumentURI

	// DocumentType is the owning document's type tag.
	DocumentType string

	// Resolver answers global-uniqueness lookups. Nil skips them.
	Resolver Resolver
}

// Validate checks the collection invariants and each entry's
// cross-system constraints. Routine failures come back as
// (false, messages, nil); err is reserved for misuse such as a
// UUID/key mismatch.
func (c *Collection) Validate(ctx context.Context, vctx ValidationContext) (bool, []string, error) {
	for key, entry := range c.byUUID {
		if key != entry.UUID {
			return false, nil, &UUIDMismatchError{Key: key, UUID: entry.UUID}
		}
	}

	var result *multierror.Error
	nonDeprecated := make(map[string]int)

	for _, i := range c.All() {
		if err := i.Schema.ValidateValue(i.Value); err != nil {
			result = multierror.Append(result, err)
		}
		if !i.Deprecated {
			nonDeprecated[i.Schema.Namespace()]++
		}
		if types := i.Schema.DocumentTypes(); types != nil && vctx.DocumentType != "" {
			if !contains(types, vctx.DocumentType) {
				result = multierror.Append(result, fmt.Errorf(
					"identifier value %q in namespace %s is not valid for %s documents",
					i.Value, i.Schema.Namespace(), vctx.DocumentType))
			}
		}
		if i.Schema.RequireGloballyUnique() && vctx.Resolver != nil {
			dupe, err := c.globalDuplicate(ctx, vctx, i)
			if err != nil {
				return false, nil, fmt.Errorf("global uniqueness check failed for %s: %w", i, err)
			}
			if dupe != "" {
				result = multierror.Append(result, fmt.Errorf(
					"identifier value %q in namespace %s already resolves to document %s",
					i.Value, i.Schema.Namespace(), dupe))
			}
		}
	}

	for _, i := range c.All() {
		ns := i.Schema.Namespace()
		if i.Schema.SingleNonDeprecated() && nonDeprecated[ns] > 1 {
			result = multierror.Append(result, fmt.Errorf(
				"namespace %s has %d non-deprecated identifiers; at most one is allowed",
				ns, nonDeprecated[ns]))
			nonDeprecated[ns] = 0 // report once per namespace
		}
	}

	if result == nil {
		return true, nil, nil
	}
	messages := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		messages = append(messages, e.Error())
	}
	return false, messages, nil
}

func (c *Collection) globalDuplicate(ctx context.Context, vctx ValidationContext, i *Identifier) (uri.DocumentURI, error) {
	resolutions, err := vctx.Resolver.ResolveFromValue(ctx, i.Schema.Namespace(), i.Value)
	if err != nil {
		return "", err
	}
	for _, r := range resolutions {
		if r.DocumentURI != vctx.DocumentURI {
			return r.DocumentURI, nil
		}
	}
	return "", nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
