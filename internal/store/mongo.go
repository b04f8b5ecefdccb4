// Package store persists evaluation reports.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ppiankov/planeval/internal/model"
	"github.com/ppiankov/planeval/internal/score"
)

// ResultStore saves and loads evaluated runs
type ResultStore interface {
	SaveReport(ctx context.Context, report *model.Report) error
	FindRuns(ctx context.Context, runID string) ([]RunDocument, error)
	Close(ctx context.Context) error
}

// RunDocument is one evaluated run tagged with the invocation that produced it
type RunDocument struct {
	RunID       string                `bson:"run_id" json:"run_id"`
	GeneratedAt time.Time             `bson:"generated_at" json:"generated_at"`
	Mode        model.AggregationMode `bson:"mode" json:"mode"`
	Consumption model.ConsumptionMode `bson:"consumption" json:"consumption"`
	Lemmatizer  string                `bson:"lemmatizer" json:"lemmatizer"`
	Key         model.RunKey          `bson:"key" json:"key"`
	Source      string                `bson:"source,omitempty" json:"source,omitempty"`
	Result      model.Result          `bson:"result" json:"result"`
}

// Documents flattens a report into one document per run
func Documents(report *model.Report) []RunDocument {
	docs := make([]RunDocument, 0, len(report.Runs))
	for _, run := range report.Runs {
		docs = append(docs, RunDocument{
			RunID:       report.RunID,
			GeneratedAt: report.GeneratedAt,
			Mode:        report.Mode,
			Consumption: report.Consumption,
			Lemmatizer:  report.Lemmatizer,
			Key:         run.Key,
			Source:      run.Source,
			Result:      run.Result,
		})
	}
	return docs
}

// ReportFromDocuments rebuilds the report of one invocation from its stored runs.
// It returns nil when docs is empty.
func ReportFromDocuments(docs []RunDocument) *model.Report {
	if len(docs) == 0 {
		return nil
	}

	first := docs[0]
	report := &model.Report{
		RunID:       first.RunID,
		GeneratedAt: first.GeneratedAt,
		Mode:        first.Mode,
		Consumption: first.Consumption,
		Lemmatizer:  first.Lemmatizer,
		Runs:        make([]model.RunResult, 0, len(docs)),
	}
	for _, doc := range docs {
		report.Runs = append(report.Runs, model.RunResult{Key: doc.Key, Source: doc.Source, Result: doc.Result})
	}
	if len(report.Runs) > 1 {
		report.Total = score.Total(report.Runs)
	}
	return report
}

// MongoStore keeps run documents in a MongoDB collection
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoStore{
		client: client,
		runs:   client.Database(database).Collection(collection),
	}, nil
}

// SaveReport inserts one document per run
func (s *MongoStore) SaveReport(ctx context.Context, report *model.Report) error {
	docs := Documents(report)
	if len(docs) == 0 {
		return nil
	}

	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}

	if _, err := s.runs.InsertMany(ctx, batch); err != nil {
		return fmt.Errorf("insert runs: %w", err)
	}
	return nil
}

// FindRuns returns the documents of one invocation, ordered by run key
func (s *MongoStore) FindRuns(ctx context.Context, runID string) ([]RunDocument, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "key.dataset", Value: 1},
		{Key: "key.solver", Value: 1},
		{Key: "key.model", Value: 1},
	})

	cursor, err := s.runs.Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []RunDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return docs, nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
