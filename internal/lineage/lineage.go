// Package lineage records the supplementary Model->TrainingJob->Dataset
// provenance graph over Neo4j, grounded on db/repository/neo4j.go's
// MERGE/ExecuteWrite/ExecuteRead Cypher pattern, generalized from
// action-dependency graphs to training provenance.
package lineage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Graph records and queries training provenance.
type Graph struct {
	driver neo4j.DriverWithContext
}

// NewGraph connects to Neo4j and verifies connectivity, mirroring
// NewNeo4jRepository.
func NewGraph(ctx context.Context, uri, username, password string) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connect to neo4j: %w", err)
	}
	return &Graph{driver: driver}, nil
}

// RecordTraining merges a Model node trained by a TrainingJob that used a
// Dataset, creating (Model)-[:TRAINED_FROM]->(TrainingJob)-[:USED]->
// (Dataset) edges. Called once per completed training run.
func (g *Graph) RecordTraining(ctx context.Context, modelID, trainingJobID, family, datasetHandle string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (m:Model {id: $modelId})
			SET m.family = $family
			MERGE (j:TrainingJob {id: $jobId})
			MERGE (d:Dataset {handle: $datasetHandle})
			SET d.family = $family
			MERGE (m)-[:TRAINED_FROM]->(j)
			MERGE (j)-[:USED]->(d)
		`
		params := map[string]any{
			"modelId":       modelID,
			"family":        family,
			"jobId":         trainingJobID,
			"datasetHandle": datasetHandle,
		}
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

// DatasetForModel returns the dataset handle that produced modelID's
// active model, or ("", false, nil) if no provenance edge is recorded —
// the graph is supplementary, so a miss is never an error.
func (g *Graph) DatasetForModel(ctx context.Context, modelID string) (string, bool, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (m:Model {id: $modelId})-[:TRAINED_FROM]->(:TrainingJob)-[:USED]->(d:Dataset)
			RETURN d.handle AS handle
			LIMIT 1
		`
		params := map[string]any{"modelId": modelID}

		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			record := res.Record()
			if handle, ok := record.Get("handle"); ok {
				return handle.(string), res.Err()
			}
		}
		return nil, res.Err()
	})
	if err != nil {
		return "", false, fmt.Errorf("query dataset for model %s: %w", modelID, err)
	}
	if result == nil {
		return "", false, nil
	}
	return result.(string), true, nil
}

// TrainingJobsForDataset returns every TrainingJob id that consumed
// datasetHandle, the inverse of RecordTraining's USED edge — used to
// answer "what models were ever trained from this dataset" during audits.
func (g *Graph) TrainingJobsForDataset(ctx context.Context, datasetHandle string) ([]string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (j:TrainingJob)-[:USED]->(d:Dataset {handle: $handle})
			RETURN j.id AS jobId
		`
		params := map[string]any{"handle": datasetHandle}

		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var jobs []string
		for res.Next(ctx) {
			record := res.Record()
			if jobID, ok := record.Get("jobId"); ok {
				jobs = append(jobs, jobID.(string))
			}
		}
		return jobs, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query training jobs for dataset %s: %w", datasetHandle, err)
	}
	return result.([]string), nil
}

// Close releases the underlying Neo4j driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
