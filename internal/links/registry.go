package links

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/oaslink/internal/spec"
)

// Registry maps document labels to loaded documents. The label of a document
// is its info.title and is the prefix used in cross-document operationRefs.
type Registry struct {
	labels    []string
	docs      map[string]*openapi3.T
	positions map[string]int
	resolvers map[string]*Resolver
}

// NewRegistry registers docs in order. Documents without a title are skipped
// with a MissingTitle warning; a repeated title keeps the first document and
// reports DuplicateTitle for the others.
func NewRegistry(docs []*openapi3.T, cacheSize int) (*Registry, []Warning) {
	r := &Registry{
		docs:      make(map[string]*openapi3.T, len(docs)),
		positions: make(map[string]int, len(docs)),
		resolvers: make(map[string]*Resolver, len(docs)),
	}
	var ws warnings
	for i, doc := range docs {
		if doc == nil || doc.Info == nil || doc.Info.Title == "" {
			ws.add(Warning{
				Code:     MissingTitle,
				Message:  fmt.Sprintf("document #%d has no info.title and cannot be linked", i),
				Document: fmt.Sprintf("#%d", i),
			})
			continue
		}
		label := doc.Info.Title
		if first, dup := r.positions[label]; dup {
			ws.add(Warning{
				Code:     DuplicateTitle,
				Message:  fmt.Sprintf("document #%d repeats the title of document #%d and is ignored", i, first),
				Document: label,
			})
			continue
		}
		r.labels = append(r.labels, label)
		r.docs[label] = doc
		r.positions[label] = i
		r.resolvers[label] = NewResolver(label, doc, cacheSize)
	}
	return r, ws
}

// Labels returns the registered labels in input order.
func (r *Registry) Labels() []string { return r.labels }

// Document returns the document registered under label.
func (r *Registry) Document(label string) (*openapi3.T, bool) {
	doc, ok := r.docs[label]
	return doc, ok
}

// Position returns the input index of the document registered under label.
func (r *Registry) Position(label string) (int, bool) {
	i, ok := r.positions[label]
	return i, ok
}

func (r *Registry) resolver(label string) *Resolver { return r.resolvers[label] }

// Operation returns the operation k names, or nil.
func (r *Registry) Operation(k OperationKey) *openapi3.Operation {
	doc, ok := r.docs[k.Document]
	if !ok {
		return nil
	}
	return spec.FindOperation(doc, k.Path, k.Method)
}
