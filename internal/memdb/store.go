// Package memdb is an in-memory document store that evaluates the filter,
// update and aggregation operators used by the query catalog.
package memdb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrUnsupportedStage    = errors.New("unsupported aggregation stage")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrImmutableID         = errors.New("the _id field cannot be modified")
)

type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// Store holds collections of documents. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
}

func New() *Store {
	return &Store{collections: make(map[string][]bson.M)}
}

// Insert adds documents to a collection, creating it if needed. Documents
// without an _id get an ObjectID.
func (s *Store) Insert(collection string, docs ...interface{}) error {
	normalized := make([]bson.M, 0, len(docs))
	for _, d := range docs {
		doc, err := normalizeDoc(d)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", collection, err)
		}
		if _, ok := doc["_id"]; !ok {
			doc["_id"] = primitive.NewObjectID()
		}
		normalized = append(normalized, doc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.collections[collection]
	seen := make(map[string]bool, len(existing)+len(normalized))
	for _, doc := range existing {
		seen[groupKey(doc["_id"])] = true
	}
	for _, doc := range normalized {
		key := groupKey(doc["_id"])
		if seen[key] {
			return fmt.Errorf("%w: %s _id %v", ErrDuplicateKey, collection, doc["_id"])
		}
		seen[key] = true
	}
	s.collections[collection] = append(existing, normalized...)
	return nil
}

// Find returns copies of the matching documents, projected.
func (s *Store) Find(collection string, filter, projection bson.D) ([]bson.M, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []bson.M{}
	for _, doc := range s.collections[collection] {
		ok, err := Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		p, err := project(copyDoc(doc), projection)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) UpdateOne(collection string, filter, update bson.D) (UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res UpdateResult
	docs := s.collections[collection]
	for i, doc := range docs {
		ok, err := Match(doc, filter)
		if err != nil {
			return res, err
		}
		if !ok {
			continue
		}
		res.MatchedCount = 1
		updated := copyDoc(doc)
		changed, err := applyUpdate(updated, update)
		if err != nil {
			return res, err
		}
		if changed {
			docs[i] = updated
			res.ModifiedCount = 1
		}
		return res, nil
	}
	return res, nil
}

func (s *Store) DeleteOne(collection string, filter bson.D) (int64, error) {
	return s.delete(collection, filter, 1)
}

func (s *Store) DeleteMany(collection string, filter bson.D) (int64, error) {
	return s.delete(collection, filter, -1)
}

func (s *Store) delete(collection string, filter bson.D, max int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		return 0, nil
	}
	var deleted int64
	kept := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		if max < 0 || deleted < int64(max) {
			ok, err := Match(doc, filter)
			if err != nil {
				return 0, err
			}
			if ok {
				deleted++
				continue
			}
		}
		kept = append(kept, doc)
	}
	s.collections[collection] = kept
	return deleted, nil
}

func (s *Store) Aggregate(collection string, pipeline mongo.Pipeline) ([]bson.M, error) {
	s.mu.RLock()
	docs := make([]bson.M, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		docs = append(docs, copyDoc(doc))
	}
	s.mu.RUnlock()

	out, err := runPipeline(docs, pipeline)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []bson.M{}
	}
	return out, nil
}

func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Drop removes a collection. Dropping a missing collection is not an error.
func (s *Store) Drop(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
}

func (s *Store) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string][]bson.M)
}

// Collections lists collection names in sorted order.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
