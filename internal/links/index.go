package links

import (
	"context"
	"fmt"

	"github.com/mark3labs/oaslink/internal/spec"
)

// ValueTypeIndex maps a value-type tag to every parameter carrying it.
// Buckets keep insertion order, which follows registry order, then path,
// then method.
type ValueTypeIndex struct {
	tags    []string
	buckets map[string][]ParameterReference
}

func newValueTypeIndex() *ValueTypeIndex {
	return &ValueTypeIndex{buckets: map[string][]ParameterReference{}}
}

func (ix *ValueTypeIndex) add(tag string, ref ParameterReference) {
	if _, ok := ix.buckets[tag]; !ok {
		ix.tags = append(ix.tags, tag)
	}
	ix.buckets[tag] = append(ix.buckets[tag], ref)
}

// Lookup returns the parameters tagged with tag. The result must not be
// modified.
func (ix *ValueTypeIndex) Lookup(tag string) []ParameterReference { return ix.buckets[tag] }

// Tags returns the known tags in first-seen order.
func (ix *ValueTypeIndex) Tags() []string { return ix.tags }

type taggedParameter struct {
	tag string
	ref ParameterReference
}

// BuildIndex indexes the tagged parameters of every registered document.
func BuildIndex(ctx context.Context, reg *Registry) (*ValueTypeIndex, []Warning, error) {
	ix := newValueTypeIndex()
	var ws warnings
	for _, label := range reg.Labels() {
		tagged, err := indexDocument(ctx, reg, label, &ws)
		if err != nil {
			return nil, nil, err
		}
		for _, tp := range tagged {
			ix.add(tp.tag, tp.ref)
		}
	}
	return ix, ws, nil
}

// indexDocument collects the tagged parameters of one document. Path-level
// parameters are merged into each operation, operation parameters winning.
func indexDocument(ctx context.Context, reg *Registry, label string, ws *warnings) ([]taggedParameter, error) {
	doc, _ := reg.Document(label)
	res := reg.resolver(label)

	var out []taggedParameter
	for _, om := range spec.Operations(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := OperationKey{Document: label, Path: om.Path, Method: om.Method}
		params, err := spec.MergeParameters(om.Item, om.Operation, res.Parameter)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			tag := spec.ParameterValueType(p)
			if tag == "" {
				continue
			}
			if p.Name == "" {
				ws.add(Warning{
					Code:      MissingParameterName,
					Message:   fmt.Sprintf("parameter tagged %q on %s has no name and is not indexed", tag, key),
					Document:  label,
					Operation: key.String(),
				})
				continue
			}
			out = append(out, taggedParameter{tag: tag, ref: ParameterReference{OperationKey: key, Name: p.Name}})
		}
	}
	return out, nil
}
