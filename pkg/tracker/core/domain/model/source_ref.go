package model

import "fmt"

// SourceRefKind tags a SourceRef.
type SourceRefKind int

const (
	// SourceRefSource refers to a whole Source.
	SourceRefSource SourceRefKind = iota
	// SourceRefObject refers to one SourceObject within a Source.
	SourceRefObject
)

// SourceRef names a source or target of a process: either a Source or a
// SourceObject inside a Source.
type SourceRef struct {
	Kind       SourceRefKind
	SourceName string
	ObjectName string
}

// SourceNamed refers to the source with the given name.
func SourceNamed(name string) SourceRef {
	return SourceRef{Kind: SourceRefSource, SourceName: name}
}

// SourceObjectNamed refers to the object with the given name inside a source.
func SourceObjectNamed(source, object string) SourceRef {
	return SourceRef{Kind: SourceRefObject, SourceName: source, ObjectName: object}
}

// SourceNames converts plain names into source references.
func SourceNames(names ...string) []SourceRef {
	refs := make([]SourceRef, 0, len(names))
	for _, n := range names {
		refs = append(refs, SourceNamed(n))
	}
	return refs
}

// String renders "source" or "source.object".
func (r SourceRef) String() string {
	if r.Kind == SourceRefObject {
		return fmt.Sprintf("%s.%s", r.SourceName, r.ObjectName)
	}
	return r.SourceName
}
