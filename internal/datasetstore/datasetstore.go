// Package datasetstore accumulates the Training Dataset entity that the
// event consumers append to and the Training Dispatcher reads from,
// backed by CouchDB via go-kivik, grounded on storage/database.go's
// CouchDBClient.
package datasetstore

import (
	"context"
	"fmt"
	"time"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
)

// Dataset is the per-family accumulating training dataset. Datasets
// accumulate monotonically; no record is ever deleted by the core.
type Dataset struct {
	ID                 string             `json:"_id"`
	Rev                string             `json:"_rev,omitempty"`
	Family             string             `json:"family"`
	RecordCount        int                `json:"recordCount"`
	HolidayRecordCount int                `json:"holidayRecordCount"`
	DateRangeFrom      time.Time          `json:"dateRangeFrom"`
	DateRangeTo        time.Time          `json:"dateRangeTo"`
	FeatureColumns     []string           `json:"featureColumns"`
	TargetColumn       string             `json:"targetColumn"`
	DatasetHash        string             `json:"datasetHash,omitempty"`
	QualityMetrics     map[string]float64 `json:"qualityMetrics,omitempty"`
	ArtifactLocation   string             `json:"artifactLocation"`
}

func datasetDocID(family string) string { return "dataset:" + family }

// documentStore narrows the CouchDB operations Store needs down to two
// calls, letting tests exercise Store's accumulation logic against a
// fake instead of a live database, the same way modelstore narrows its
// S3 dependency to S3Client.
type documentStore interface {
	getDoc(ctx context.Context, id string) (*Dataset, error)
	putDoc(ctx context.Context, id string, doc *Dataset) (rev string, err error)
}

// kivikDocumentStore adapts a *kivik.DB to documentStore.
type kivikDocumentStore struct {
	db *kivik.DB
}

var _ documentStore = kivikDocumentStore{}

func (k kivikDocumentStore) getDoc(ctx context.Context, id string) (*Dataset, error) {
	row := k.db.Get(ctx, id)
	if row.Err() != nil {
		if kivik.HTTPStatus(row.Err()) == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("get dataset document: %w", row.Err())
	}
	var ds Dataset
	if err := row.ScanDoc(&ds); err != nil {
		return nil, fmt.Errorf("scan dataset document: %w", err)
	}
	return &ds, nil
}

func (k kivikDocumentStore) putDoc(ctx context.Context, id string, doc *Dataset) (string, error) {
	rev, err := k.db.Put(ctx, id, doc)
	if err != nil {
		return "", fmt.Errorf("put dataset document: %w", err)
	}
	return rev, nil
}

// Store accumulates per-family training datasets.
type Store struct {
	client *kivik.Client
	docs   documentStore
}

// Config configures the CouchDB connection.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
}

// NewStore connects to CouchDB and creates the database if missing,
// mirroring storage/database.go's NewCouchDBClient.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := kivik.New("couch", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create couchdb client: %w", err)
	}

	exists, err := client.DBExists(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("check database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Database); err != nil {
			return nil, fmt.Errorf("create database %s: %w", cfg.Database, err)
		}
	}

	return &Store{client: client, docs: kivikDocumentStore{db: client.DB(cfg.Database)}}, nil
}

// LatestDatasetHandle returns the artifact location of family's dataset
// document if it has at least one record, satisfying
// internal/dispatcher.DatasetLookup.
func (s *Store) LatestDatasetHandle(ctx context.Context, family string) (string, bool, error) {
	ds, err := s.docs.getDoc(ctx, datasetDocID(family))
	if err != nil {
		return "", false, err
	}
	if ds == nil || ds.RecordCount == 0 {
		return "", false, nil
	}
	return ds.ArtifactLocation, true, nil
}

// AppendRecords increments family's dataset record count by n and widens
// its date range to include occurredAt, creating the dataset document on
// first use. isHoliday annotates whether occurredAt falls on a
// configured holiday, per the calendar enrichment every ingested record
// carries. Returns the resulting total record count.
func (s *Store) AppendRecords(ctx context.Context, family string, n int, occurredAt time.Time, isHoliday bool) (int, error) {
	ds, err := s.docs.getDoc(ctx, datasetDocID(family))
	if err != nil {
		return 0, err
	}
	if ds == nil {
		ds = &Dataset{ID: datasetDocID(family), Family: family}
	}

	ds.RecordCount += n
	if isHoliday {
		ds.HolidayRecordCount += n
	}
	if ds.DateRangeFrom.IsZero() || occurredAt.Before(ds.DateRangeFrom) {
		ds.DateRangeFrom = occurredAt
	}
	if occurredAt.After(ds.DateRangeTo) {
		ds.DateRangeTo = occurredAt
	}

	rev, err := s.docs.putDoc(ctx, ds.ID, ds)
	if err != nil {
		return 0, err
	}
	ds.Rev = rev
	return ds.RecordCount, nil
}

// RecordCount returns the current record count for family, or 0 if no
// dataset document exists yet.
func (s *Store) RecordCount(ctx context.Context, family string) (int, error) {
	ds, err := s.docs.getDoc(ctx, datasetDocID(family))
	if err != nil {
		return 0, err
	}
	if ds == nil {
		return 0, nil
	}
	return ds.RecordCount, nil
}

// Close releases the underlying CouchDB client.
func (s *Store) Close() error {
	return s.client.Close()
}
