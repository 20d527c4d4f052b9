// Package importer bulk-loads collections from a directory of JSON array
// files, one file per collection named after it (products.json, ...).
// Documents may use Extended JSON ({"$oid": ...}, {"$date": ...}).
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mongo-catalog/internal/database"
	"mongo-catalog/internal/schema"
)

var ErrNoFiles = errors.New("no collection files found")

// ParseFile decodes one JSON array of Extended JSON documents.
func ParseFile(path string) ([]bson.D, error) {
	return parseFile(context.Background(), path)
}

// parseFile stops early once ctx is done.
func parseFile(ctx context.Context, path string) ([]bson.D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []json.RawMessage
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON array: %w", filepath.Base(path), err)
	}
	docs := make([]bson.D, 0, len(raw))
	for i, r := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var doc bson.D
		if err := bson.UnmarshalExtJSON(r, false, &doc); err != nil {
			return nil, fmt.Errorf("%s: document %d: %w", filepath.Base(path), i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Files maps each collection to its file in dir. Other files are logged and
// skipped.
func Files(dir string, logger *zap.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		collection := strings.TrimSuffix(e.Name(), ".json")
		if !schema.IsCollection(collection) {
			logger.Warn("skipping file of unknown collection", zap.String("file", e.Name()))
			continue
		}
		files[collection] = filepath.Join(dir, e.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}
	return files, nil
}

// Import parses every collection file of dir in parallel, then inserts them
// in one transaction. It returns the number of documents per collection.
func Import(ctx context.Context, db database.DatabaseDriver, dir string, logger *zap.Logger) (map[string]int, error) {
	files, err := Files(dir, logger)
	if err != nil {
		return nil, err
	}

	parsed := make(map[string][]bson.D, len(files))
	results := make([][]bson.D, len(schema.Collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, collection := range schema.Collections {
		path, ok := files[collection]
		if !ok {
			continue
		}
		i := i
		g.Go(func() error {
			docs, err := parseFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, collection := range schema.Collections {
		if _, ok := files[collection]; ok {
			parsed[collection] = results[i]
		}
	}

	counts := make(map[string]int, len(parsed))
	err = db.ExecuteTx(ctx, func(ctx context.Context) error {
		for _, collection := range schema.Collections {
			docs, ok := parsed[collection]
			if !ok {
				continue
			}
			batch := make([]interface{}, len(docs))
			for i, d := range docs {
				batch[i] = d
			}
			if len(batch) > 0 {
				if err := db.Insert(ctx, collection, batch...); err != nil {
					return fmt.Errorf("import %s: %w", collection, err)
				}
			}
			counts[collection] = len(docs)
			logger.Info("imported collection", zap.String("collection", collection), zap.Int("documents", len(docs)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
