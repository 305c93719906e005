package links

import (
	"fmt"

	"github.com/mark3labs/oaslink/internal/spec"
)

// prune drops candidates that leave a required parameter of their target
// unbound, reporting one warning per missing parameter.
func prune(reg *Registry, cands []*candidate, ws *warnings) ([]*candidate, error) {
	required := map[OperationKey][]string{}
	requiredOf := func(k OperationKey) ([]string, error) {
		if names, ok := required[k]; ok {
			return names, nil
		}
		doc, _ := reg.Document(k.Document)
		item := doc.Paths[k.Path]
		params, err := spec.MergeParameters(item, spec.FindOperation(doc, k.Path, k.Method), reg.resolver(k.Document).Parameter)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, p := range params {
			if p.Required && p.Name != "" {
				names = append(names, p.Name)
			}
		}
		required[k] = names
		return names, nil
	}

	kept := make([]*candidate, 0, len(cands))
	for _, c := range cands {
		names, err := requiredOf(c.target)
		if err != nil {
			return nil, err
		}
		complete := true
		for _, name := range names {
			if _, ok := c.params[name]; ok {
				continue
			}
			complete = false
			ws.add(Warning{
				Code:      MissingRequiredParameter,
				Message:   fmt.Sprintf("link %s from %s to %s not established: required parameter %q is not bound", c.label(), c.origin, c.target, name),
				Document:  c.origin.Document,
				Operation: c.origin.String(),
				Link:      c.label(),
				Parameter: name,
			})
		}
		if complete {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
