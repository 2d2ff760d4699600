// Package schema describes the entity metadata the serializer core consumes:
// resource names, primary keys, and relationship metadata. It is the
// declarative contract between serializer definitions and whichever loading
// collaborator owns the actual rows.
package schema

import "fmt"

// RelationType represents the kind of link between two resources
type RelationType int

const (
	// BelongsTo links a child row to its owner via a foreign key on the child
	BelongsTo RelationType = iota
	// HasOne links an owner row to at most one child via a foreign key on the child
	HasOne
	// HasMany links an owner row to any number of children via a foreign key on the children
	HasMany
)

// String returns the string representation of the relation type
func (t RelationType) String() string {
	switch t {
	case BelongsTo:
		return "belongs_to"
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	default:
		return "unknown"
	}
}

// Collection reports whether the relation resolves to a list of records
func (t RelationType) Collection() bool {
	return t == HasMany
}

// Relationship represents a relationship between two resources
type Relationship struct {
	Type     RelationType
	Target   string // target resource name
	Nullable bool

	// ForeignKey overrides the derived foreign key column
	ForeignKey string

	// OrderBy applies to has_many loads
	OrderBy string
}

// Resource is the metadata for one entity type: where its rows live and how
// they relate to other resources. Loaded relations are stored on records
// under the relationship's name.
type Resource struct {
	Name          string
	TableName     string
	PrimaryKey    string
	Relationships map[string]*Relationship
}

// NewResource creates a resource with derived table name and an "id" primary key
func NewResource(name string) *Resource {
	return &Resource{
		Name:          name,
		TableName:     toSnakeCase(name) + "s",
		PrimaryKey:    "id",
		Relationships: make(map[string]*Relationship),
	}
}

// Relationship returns the relationship registered under name
func (r *Resource) Relationship(name string) (*Relationship, bool) {
	rel, ok := r.Relationships[name]
	return rel, ok
}

// HasRelationship returns true if the resource has a relationship with the given name
func (r *Resource) HasRelationship(name string) bool {
	_, ok := r.Relationships[name]
	return ok
}

// AddRelationship registers a relationship under name
func (r *Resource) AddRelationship(name string, rel *Relationship) error {
	if name == "" || rel == nil {
		return fmt.Errorf("%w: empty relationship on %s", ErrInvalidRelationship, r.Name)
	}
	if _, exists := r.Relationships[name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateRelationship, r.Name, name)
	}
	r.Relationships[name] = rel
	return nil
}

// ForeignKeyColumn resolves the foreign key column a relationship joins on.
// For belongs_to the column lives on the owner of the relationship; for
// has_one/has_many it lives on the target and points back at owner.
func (rel *Relationship) ForeignKeyColumn(owner *Resource) string {
	if rel.ForeignKey != "" {
		return rel.ForeignKey
	}
	if rel.Type == BelongsTo {
		return toSnakeCase(rel.Target) + "_id"
	}
	return toSnakeCase(owner.Name) + "_id"
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}

	return string(result)
}
