package searchdata

// Kind classifies what a documentation anchor refers to
type Kind string

const (
	KindNamespace Kind = "namespace"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindUnion     Kind = "union"
	KindInterface Kind = "interface"
	KindFile      Kind = "file"
	KindDir       Kind = "dir"
	KindGroup     Kind = "group"
	KindPage      Kind = "page"
	KindMember    Kind = "member"
	KindUnknown   Kind = "unknown"
)

// IsCompound reports whether the kind names a page-level documentation entity
func (k Kind) IsCompound() bool {
	switch k {
	case KindMember, KindUnknown, "":
		return false
	}
	return true
}

// ParseKind maps user input to a Kind. Unknown input yields false.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindNamespace, KindClass, KindStruct, KindUnion, KindInterface,
		KindFile, KindDir, KindGroup, KindPage, KindMember, KindUnknown:
		return k, true
	}
	return "", false
}

// Item is one (display-name, link, descriptor) triple of a search entry
type Item struct {
	Display string `json:"display"`
	Link    string `json:"link"`
	Flag    int    `json:"flag"`
	Scope   string `json:"scope,omitempty"`  // Owning namespace/class/file, HTML-unescaped
	Kind    Kind   `json:"kind,omitempty"`   // Derived from the link file name
	Target  string `json:"target,omitempty"` // Compound the link points to: "pawpyseed::core::utils"
	Anchor  string `json:"anchor,omitempty"` // Fragment without '#', empty for compound pages
}

// Entry is one key of the search table with its ordered, non-empty item sequence
type Entry struct {
	Key      string `json:"key"`                // Raw Doxygen key: "proj_5fgrid"
	Name     string `json:"name"`               // Decoded key: "proj_grid"
	Category string `json:"category,omitempty"` // Search file family: "all", "classes", ...
	Items    []Item `json:"items"`
}

// HasKind reports whether any item of the entry is of kind k
func (e Entry) HasKind(k Kind) bool {
	for _, item := range e.Items {
		if item.Kind == k {
			return true
		}
	}
	return false
}

// Kinds returns the distinct item kinds of the entry in first-seen order
func (e Entry) Kinds() []Kind {
	var kinds []Kind
	seen := make(map[Kind]bool)
	for _, item := range e.Items {
		if !seen[item.Kind] {
			seen[item.Kind] = true
			kinds = append(kinds, item.Kind)
		}
	}
	return kinds
}
