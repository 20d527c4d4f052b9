package catalog

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Kind is the shell operation a query performs.
type Kind string

const (
	KindListCollections Kind = "listCollections"
	KindFind            Kind = "find"
	KindUpdateOne       Kind = "updateOne"
	KindDeleteOne       Kind = "deleteOne"
	KindDeleteMany      Kind = "deleteMany"
	KindAggregate       Kind = "aggregate"
	KindDrop            Kind = "drop"
	KindDropDatabase    Kind = "dropDatabase"
)

// DatabaseScoped reports whether the kind targets the database rather than
// a single collection.
func (k Kind) DatabaseScoped() bool {
	return k == KindListCollections || k == KindDropDatabase
}

// Section groups queries the way the reference script does.
type Section string

const (
	SectionDatabase     Section = "database"
	SectionCRUD         Section = "crud"
	SectionFilters      Section = "filters"
	SectionAggregations Section = "aggregations"
)

// Sections in script order.
var Sections = []Section{SectionDatabase, SectionCRUD, SectionFilters, SectionAggregations}

// Relational is the SQL form of a query for the relational mirror.
// Placeholders use the $n style; drivers rebind as needed.
//
// For updates, SQL only touches rows whose values change, and Matched
// counts the rows the filter selects. Matched may reference any subset of
// Args.
type Relational struct {
	SQL     string
	Matched string
	Args    []interface{}
}

type Query struct {
	Name       string
	Section    Section
	Collection string
	Kind       Kind

	Filter     bson.D
	Projection bson.D
	Update     bson.D
	Pipeline   mongo.Pipeline

	// Comment describes the intent and the expected outcome.
	Comment     string
	Destructive bool
	Relational  *Relational
}
