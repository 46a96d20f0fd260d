// Package registry persists Model entities via GORM and answers the
// registry-side queries the Lifecycle Manager and Prediction Pipeline need:
// resolving the active model per family, listing stale active models, and
// recording lifecycle transitions.
package registry

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// State is a Model's lifecycle state.
type State string

const (
	StateDraft      State = "Draft"
	StateTesting    State = "Testing"
	StateActive     State = "Active"
	StateDeprecated State = "Deprecated"
	StateArchived   State = "Archived"
)

// Metrics holds the family-appropriate subset of performance metrics for a
// trained model. Zero fields are simply unused by a given family rather
// than requiring a separate type per family.
type Metrics struct {
	R2        float64
	MAE       float64
	RMSE      float64
	MAPE      float64
	Precision float64
	Recall    float64
	F1        float64
	AUC       float64
}

// Model is the registry entity. Mutation is restricted to the Lifecycle
// Manager and the trainer invoked by the Training Dispatcher; every other
// caller only reads.
type Model struct {
	ID             string `gorm:"primaryKey"`
	Family         string `gorm:"column:family;index:idx_family_status,priority:1"`
	VersionMajor   int
	VersionMinor   int
	VersionPatch   int
	State          State  `gorm:"column:status;index:idx_family_status,priority:2"`
	Algorithm      string
	Metrics        Metrics `gorm:"embedded;embeddedPrefix:metric_"`
	TrainingDate   time.Time
	DeploymentDate *time.Time
	ArtifactHandle string
	TrainingJobID  *string
	Metadata       map[string]string `gorm:"serializer:json"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Model) TableName() string { return "models" }

// Version renders the model's semantic version as "major.minor.patch".
func (m Model) Version() string {
	return versionString(m.VersionMajor, m.VersionMinor, m.VersionPatch)
}

func versionString(major, minor, patch int) string {
	return strconv.Itoa(major) + "." + strconv.Itoa(minor) + "." + strconv.Itoa(patch)
}

// Store is the GORM-backed persistence surface the rest of the core uses.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an already-opened *gorm.DB. Opening the connection and
// running migrations is the caller's responsibility (cmd/mlsvcd/main.go),
// mirroring db/postgres.go's separation of connect from use.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate runs GORM's auto-migration for the Model entity.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Model{})
}

// ActiveModel returns the currently Active model for family, or
// (nil, nil) if none exists — callers translate absence into an
// Unavailable error at the pipeline boundary, not here.
func (s *Store) ActiveModel(family string) (*Model, error) {
	var m Model
	err := s.db.Where("family = ? AND status = ?", family, StateActive).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// StaleActiveModels returns every Active model whose TrainingDate precedes
// the cutoff, used by the Lifecycle Manager's periodic staleness sweep.
func (s *Store) StaleActiveModels(cutoff time.Time) ([]Model, error) {
	var models []Model
	err := s.db.Where("status = ? AND training_date < ?", StateActive, cutoff).Find(&models).Error
	return models, err
}

// Save inserts or updates a model record.
func (s *Store) Save(m *Model) error {
	return s.db.Save(m).Error
}

// Get loads a model by id.
func (s *Store) Get(id string) (*Model, error) {
	var m Model
	err := s.db.Where("id = ?", id).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
