package symbolindex

// Index constants
const (
	// IndexSchemaVersion changes whenever the document layout or mapping changes.
	// Persistent indexes with a different version are rebuilt.
	IndexSchemaVersion = 1

	// BatchSize is the number of documents submitted per bleve batch
	BatchSize = 100

	DefaultMaxResults   = 10
	MaxResultsCap       = 50
	DefaultScopeResults = 50
	MaxScopeResults     = 500
)

// Document fields
const (
	FieldKey       = "key"
	FieldName      = "name"
	FieldCategory  = "category"
	FieldKinds     = "kinds"
	FieldTargets   = "targets"
	FieldDisplay   = "display"
	FieldScopes    = "scopes"
	FieldTerms     = "terms"
	FieldItemsJSON = "items_json"
)

// storedFields are loaded for every hit
var storedFields = []string{FieldKey, FieldName, FieldCategory, FieldKinds, FieldItemsJSON}
