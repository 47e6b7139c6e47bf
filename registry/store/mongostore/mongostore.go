// Package mongostore provides a MongoDB implementation of the registry
// store, persisting compiled bridges for durability across restarts,
// suitable for production deployments. It mirrors the teacher's own
// registry/store/mongo almost component-for-component, just storing
// compiled .bridge instruction sets instead of agent toolset metadata.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/bridge/ir"
	"goa.design/bridge/registry"
	"goa.design/bridge/registry/store"
)

// Store is a MongoDB implementation of store.Store.
type Store struct {
	collection *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// bridgeDocument is the MongoDB document representation of a
// registry.CompiledBridge. Instructions is stored as its JSON encoding
// rather than a native bson shape, since ir.Instruction's tagged-variant
// structure already has a stable JSON form the compiler and the engine both
// rely on.
type bridgeDocument struct {
	ID             string    `bson:"_id"`
	BridgeID       string    `bson:"bridge_id"`
	Version        string    `bson:"version"`
	Source         string    `bson:"source"`
	InstructionsJS []byte    `bson:"instructions_json"`
	CompiledAt     time.Time `bson:"compiled_at"`
	Checksum       string    `bson:"checksum"`
}

func docID(id, version string) string { return id + "@" + version }

// New creates a new MongoDB store using the provided collection. The
// collection should be from a connected mongo-driver/v2 client.
func New(collection *mongo.Collection) *Store {
	return &Store{collection: collection}
}

// Put stores or replaces the compiled bridge at (b.ID, b.Version).
func (s *Store) Put(ctx context.Context, b registry.CompiledBridge) error {
	doc, err := toDocument(b)
	if err != nil {
		return fmt.Errorf("mongostore: encode %s@%s: %w", b.ID, b.Version, err)
	}
	opts := options.Replace().SetUpsert(true)
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("mongostore: put %s@%s: %w", b.ID, b.Version, err)
	}
	return nil
}

// Get retrieves the compiled bridge at the exact (id, version).
func (s *Store) Get(ctx context.Context, id, version string) (registry.CompiledBridge, error) {
	var doc bridgeDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": docID(id, version)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return registry.CompiledBridge{}, store.ErrNotFound
		}
		return registry.CompiledBridge{}, fmt.Errorf("mongostore: get %s@%s: %w", id, version, err)
	}
	return fromDocument(&doc)
}

// Latest retrieves the most recently compiled version stored under id,
// ordered by CompiledAt.
func (s *Store) Latest(ctx context.Context, id string) (registry.CompiledBridge, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "compiled_at", Value: -1}})
	var doc bridgeDocument
	err := s.collection.FindOne(ctx, bson.M{"bridge_id": id}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return registry.CompiledBridge{}, store.ErrNotFound
		}
		return registry.CompiledBridge{}, fmt.Errorf("mongostore: latest %s: %w", id, err)
	}
	return fromDocument(&doc)
}

func toDocument(b registry.CompiledBridge) (*bridgeDocument, error) {
	raw, err := json.Marshal(b.Instructions)
	if err != nil {
		return nil, err
	}
	return &bridgeDocument{
		ID:             docID(b.ID, b.Version),
		BridgeID:       b.ID,
		Version:        b.Version,
		Source:         b.Source,
		InstructionsJS: raw,
		CompiledAt:     b.CompiledAt,
		Checksum:       b.Checksum,
	}, nil
}

func fromDocument(doc *bridgeDocument) (registry.CompiledBridge, error) {
	var instructions []ir.Instruction
	if len(doc.InstructionsJS) > 0 {
		if err := json.Unmarshal(doc.InstructionsJS, &instructions); err != nil {
			return registry.CompiledBridge{}, fmt.Errorf("decode instructions: %w", err)
		}
	}
	return registry.CompiledBridge{
		ID:           doc.BridgeID,
		Version:      doc.Version,
		Source:       doc.Source,
		Instructions: instructions,
		CompiledAt:   doc.CompiledAt,
		Checksum:     doc.Checksum,
	}, nil
}
