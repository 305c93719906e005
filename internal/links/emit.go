package links

import (
	"reflect"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/oaslink/internal/spec"
)

const autoLinkPrefix = "AutoLink"

// keyer hands out link keys. Synthesized keys share one counter per pass.
type keyer struct{ next int }

func (k *keyer) assign(name string, taken func(string) bool) string {
	if name != "" && !taken(name) {
		return name
	}
	for {
		key := autoLinkPrefix + strconv.Itoa(k.next)
		k.next++
		if !taken(key) {
			return key
		}
	}
}

func sameLink(a, b *openapi3.Link) bool {
	if a == nil || b == nil {
		return false
	}
	return a.OperationRef == b.OperationRef && reflect.DeepEqual(a.Parameters, b.Parameters)
}

// emitStandalone assigns keys in one flat namespace. A template link that is
// identical to the one already stored under its name is not repeated, and no
// response contributes the same link twice.
func emitStandalone(cands []*candidate) []ResolvedLink {
	byKey := map[string]*openapi3.Link{}
	taken := func(key string) bool { _, ok := byKey[key]; return ok }
	perResponse := map[string][]*openapi3.Link{}

	var k keyer
	var out []ResolvedLink
	for _, c := range cands {
		l := c.link()
		if c.name != "" && sameLink(byKey[c.name], l) {
			continue
		}
		respKey := c.origin.String() + "\x00" + c.status
		if containsLink(perResponse[respKey], l) {
			continue
		}
		key := k.assign(c.name, taken)
		byKey[key] = l
		perResponse[respKey] = append(perResponse[respKey], l)
		out = append(out, resolved(key, c, l))
	}
	return out
}

func containsLink(list []*openapi3.Link, l *openapi3.Link) bool {
	for _, existing := range list {
		if sameLink(existing, l) {
			return true
		}
	}
	return false
}

func resolved(key string, c *candidate, l *openapi3.Link) ResolvedLink {
	return ResolvedLink{Key: key, Name: c.name, Origin: c.origin, StatusCode: c.status, Target: c.target, Link: l}
}

// injector writes links into copies of the registered documents. Only the
// objects on the way from a document root to a modified response are copied;
// everything else is shared with the input.
type injector struct {
	reg   *Registry
	docs  map[string]*openapi3.T
	items map[string]*openapi3.PathItem
	ops   map[OperationKey]*openapi3.Operation
	resps map[string]*openapi3.Response
}

func newInjector(reg *Registry) *injector {
	return &injector{
		reg:   reg,
		docs:  map[string]*openapi3.T{},
		items: map[string]*openapi3.PathItem{},
		ops:   map[OperationKey]*openapi3.Operation{},
		resps: map[string]*openapi3.Response{},
	}
}

func (in *injector) document(label string) *openapi3.T {
	if doc, ok := in.docs[label]; ok {
		return doc
	}
	orig, _ := in.reg.Document(label)
	cp := *orig
	cp.Paths = make(openapi3.Paths, len(orig.Paths))
	for p, item := range orig.Paths {
		cp.Paths[p] = item
	}
	in.docs[label] = &cp
	return &cp
}

func (in *injector) operation(k OperationKey) *openapi3.Operation {
	if op, ok := in.ops[k]; ok {
		return op
	}
	doc := in.document(k.Document)
	itemKey := k.Document + "\x00" + k.Path
	item, ok := in.items[itemKey]
	if !ok {
		cp := *doc.Paths[k.Path]
		item = &cp
		doc.Paths[k.Path] = item
		in.items[itemKey] = item
	}
	orig := spec.FindOperation(doc, k.Path, k.Method)
	op := *orig
	op.Responses = make(openapi3.Responses, len(orig.Responses))
	for code, ref := range orig.Responses {
		op.Responses[code] = ref
	}
	spec.SetOperation(item, k.Method, &op)
	in.ops[k] = &op
	return &op
}

// response returns the writable copy of a response. A response given by
// $ref is inlined so the shared component stays untouched.
func (in *injector) response(k OperationKey, code string) (*openapi3.Response, error) {
	respKey := k.String() + "\x00" + code
	if resp, ok := in.resps[respKey]; ok {
		return resp, nil
	}
	op := in.operation(k)
	orig, err := in.reg.resolver(k.Document).Response(op.Responses[code])
	if err != nil {
		return nil, err
	}
	var cp openapi3.Response
	if orig != nil {
		cp = *orig
	}
	cp.Links = make(openapi3.Links, len(cp.Links)+1)
	if orig != nil {
		for name, l := range orig.Links {
			cp.Links[name] = l
		}
	}
	op.Responses[code] = &openapi3.ResponseRef{Value: &cp}
	in.resps[respKey] = &cp
	return &cp, nil
}

func (in *injector) inject(cands []*candidate) ([]ResolvedLink, error) {
	var k keyer
	var out []ResolvedLink
	for _, c := range cands {
		l := c.link()
		if in.present(c, l) {
			continue
		}
		resp, err := in.response(c.origin, c.status)
		if err != nil {
			return nil, err
		}
		key := k.assign(c.name, func(key string) bool { _, ok := resp.Links[key]; return ok })
		resp.Links[key] = &openapi3.LinkRef{Value: l}
		out = append(out, resolved(key, c, l))
	}
	return out, nil
}

// present reports whether the origin response already carries an identical
// link, either from the input or from earlier in this pass.
func (in *injector) present(c *candidate, l *openapi3.Link) bool {
	var links openapi3.Links
	if resp, ok := in.resps[c.origin.String()+"\x00"+c.status]; ok {
		links = resp.Links
	} else if op := in.reg.Operation(c.origin); op != nil {
		if resp, err := in.reg.resolver(c.origin.Document).Response(op.Responses[c.status]); err == nil && resp != nil {
			links = resp.Links
		}
	}
	for _, existing := range links {
		if existing != nil && sameLink(existing.Value, l) {
			return true
		}
	}
	return false
}

// documents returns docs with every modified document replaced by its copy.
func (in *injector) documents(docs []*openapi3.T) []*openapi3.T {
	out := make([]*openapi3.T, len(docs))
	copy(out, docs)
	for label, doc := range in.docs {
		if i, ok := in.reg.Position(label); ok {
			out[i] = doc
		}
	}
	return out
}
