package links

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/jsonpointer"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mark3labs/oaslink/internal/spec"
)

const (
	defaultCacheSize = 512
	// maxRefDepth bounds chains of $ref objects; longer chains are treated as cycles.
	maxRefDepth = 32
)

// Resolver resolves local "#/..." references against one document.
// Lookups are memoized. A Resolver is safe for concurrent use.
type Resolver struct {
	label string
	doc   *openapi3.T

	viewOnce sync.Once
	view     interface{}
	viewErr  error

	cache *lru.Cache[string, interface{}]
}

// NewResolver returns a resolver for doc. label is used in error messages.
func NewResolver(label string, doc *openapi3.T, cacheSize int) *Resolver {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, interface{}](cacheSize)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Resolver{label: label, doc: doc, cache: cache}
}

// Lookup returns the JSON-shaped value ref points at, following chained
// $ref objects.
func (r *Resolver) Lookup(ref string) (interface{}, error) {
	if v, ok := r.cache.Get(ref); ok {
		return v, nil
	}
	v, err := r.lookup(ref, 0)
	if err != nil {
		return nil, err
	}
	r.cache.Add(ref, v)
	return v, nil
}

func (r *Resolver) lookup(ref string, depth int) (interface{}, error) {
	if depth >= maxRefDepth {
		return nil, r.refError(ref, fmt.Errorf("reference chain deeper than %d (cycle?)", maxRefDepth))
	}
	if !strings.HasPrefix(ref, "#") {
		return nil, r.refError(ref, fmt.Errorf("only local references are supported"))
	}
	ptr, err := jsonpointer.New(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return nil, r.refError(ref, err)
	}
	root, err := r.documentView()
	if err != nil {
		return nil, r.refError(ref, err)
	}
	v, _, err := ptr.Get(root)
	if err != nil {
		return nil, r.refError(ref, err)
	}
	if v == nil {
		return nil, r.refError(ref, fmt.Errorf("target is null"))
	}
	if next, ok := refOf(v); ok {
		return r.lookup(next, depth+1)
	}
	return v, nil
}

// Response returns the response behind ref, preferring the value filled in
// by the loader.
func (r *Resolver) Response(ref *openapi3.ResponseRef) (*openapi3.Response, error) {
	if ref == nil {
		return nil, nil
	}
	if ref.Value != nil {
		return ref.Value, nil
	}
	if ref.Ref == "" {
		return nil, nil
	}
	out := new(openapi3.Response)
	if err := r.typed("response:", ref.Ref, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Parameter returns the parameter behind ref, preferring the value filled in
// by the loader.
func (r *Resolver) Parameter(ref *openapi3.ParameterRef) (*openapi3.Parameter, error) {
	if ref == nil {
		return nil, nil
	}
	if ref.Value != nil {
		return ref.Value, nil
	}
	if ref.Ref == "" {
		return nil, nil
	}
	out := new(openapi3.Parameter)
	if err := r.typed("parameter:", ref.Ref, out); err != nil {
		return nil, err
	}
	return out, nil
}

// typed resolves ref and decodes the target into out. Decoded values are
// cached under kind+ref; out must be a pointer to a kin-openapi type.
func (r *Resolver) typed(kind, ref string, out interface{}) error {
	if v, ok := r.cache.Get(kind + ref); ok {
		return decode(v, out)
	}
	raw, err := r.Lookup(ref)
	if err != nil {
		return err
	}
	if err := decode(raw, out); err != nil {
		return r.refError(ref, err)
	}
	r.cache.Add(kind+ref, raw)
	return nil
}

func (r *Resolver) documentView() (interface{}, error) {
	r.viewOnce.Do(func() {
		if r.doc == nil {
			r.viewErr = fmt.Errorf("nil document")
			return
		}
		data, err := json.Marshal(r.doc)
		if err != nil {
			r.viewErr = fmt.Errorf("marshal document: %w", err)
			return
		}
		r.viewErr = json.Unmarshal(data, &r.view)
	})
	return r.view, r.viewErr
}

func (r *Resolver) refError(ref string, cause error) error {
	return &spec.SpecError{
		Code:        spec.ReferenceError,
		Message:     fmt.Sprintf("resolve %s in %q: %v", ref, r.label, cause),
		Location:    r.label,
		JSONPointer: ref,
		Cause:       cause,
	}
}

// refOf reports the $ref of a reference object.
func refOf(v interface{}) (string, bool) {
	m, ok := asObject(v)
	if !ok {
		return "", false
	}
	ref, ok := m["$ref"].(string)
	return ref, ok
}

// asObject returns v as a JSON object. Values kept as raw JSON by older
// decoders are decoded first.
func asObject(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case json.RawMessage:
		var m map[string]interface{}
		if err := json.Unmarshal(t, &m); err != nil || m == nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

// decode converts a JSON-shaped value into out through its JSON encoding so
// the target type's UnmarshalJSON (extensions included) applies.
func decode(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
