package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"psharvest/pkg/logger"
)

// Version is the current checkpoint file format.
const Version = 1

// Suffix is appended to the snapshot path to name its checkpoint.
const Suffix = ".checkpoint.json"

// ErrAnonymized is returned by Resumable when the snapshot has already been
// anonymized and must not be harvested into again.
var ErrAnonymized = errors.New("snapshot already anonymized")

// Checkpoint is the persisted state of a harvest.
type Checkpoint struct {
	RunID        string            `json:"run_id"`
	Snapshot     string            `json:"snapshot"`
	Endpoint     string            `json:"endpoint"`
	Cursors      map[string]uint64 `json:"cursors"`
	Dropped      []string          `json:"dropped,omitempty"`
	Rounds       int               `json:"rounds"`
	TotalRecords int               `json:"total_records"`
	Anonymized   bool              `json:"anonymized"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Version      int               `json:"version"`
}

// IsDropped reports whether collection was exhausted in an earlier run.
func (c *Checkpoint) IsDropped(collection string) bool {
	return slices.Contains(c.Dropped, collection)
}

// Cursor returns the saved cursor for collection.
func (c *Checkpoint) Cursor(collection string) (uint64, bool) {
	v, ok := c.Cursors[collection]
	return v, ok
}

// Resumable returns ErrAnonymized if the checkpoint marks its snapshot as
// final.
func (c *Checkpoint) Resumable() error {
	if c.Anonymized {
		return fmt.Errorf("%s: %w", c.Snapshot, ErrAnonymized)
	}
	return nil
}

// Progress is the harvest state recorded by Update.
type Progress struct {
	Cursors map[string]uint64
	Dropped []string
	Rounds  int
	Records int
}

// Manager handles checkpoint operations for one snapshot.
type Manager struct {
	snapshot       string
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a manager for the checkpoint of snapshotPath.
func NewManager(snapshotPath string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		snapshot:       snapshotPath,
		checkpointPath: snapshotPath + Suffix,
		logger:         log.WithField("component", "checkpoint"),
	}
}

// Path returns the checkpoint file path.
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts a new checkpoint with a fresh run ID and saves it.
func (m *Manager) Create(endpoint string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		RunID:     uuid.NewString(),
		Snapshot:  m.snapshot,
		Endpoint:  endpoint,
		Cursors:   make(map[string]uint64),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   Version,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"run_id": cp.RunID,
		"path":   m.checkpointPath,
	})
	return cp, nil
}

// Load reads the checkpoint. It returns nil, nil if none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version > Version {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", cp.Version, Version)
	}
	if cp.Cursors == nil {
		cp.Cursors = make(map[string]uint64)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"run_id":        cp.RunID,
		"rounds":        cp.Rounds,
		"total_records": cp.TotalRecords,
		"cursors":       len(cp.Cursors),
		"dropped":       len(cp.Dropped),
		"anonymized":    cp.Anonymized,
		"updated_at":    cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes the checkpoint to disk atomically.
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"run_id":        cp.RunID,
		"rounds":        cp.Rounds,
		"total_records": cp.TotalRecords,
	})
	return nil
}

// Update records p in the checkpoint and saves it.
func (m *Manager) Update(cp *Checkpoint, p Progress) error {
	cp.Cursors = maps.Clone(p.Cursors)
	if cp.Cursors == nil {
		cp.Cursors = make(map[string]uint64)
	}
	for _, d := range p.Dropped {
		if !cp.IsDropped(d) {
			cp.Dropped = append(cp.Dropped, d)
		}
	}
	cp.Rounds = p.Rounds
	cp.TotalRecords = p.Records
	return m.Save(cp)
}

// MarkAnonymized flags the snapshot as final.
func (m *Manager) MarkAnonymized(cp *Checkpoint, records int) error {
	cp.Anonymized = true
	cp.TotalRecords = records
	return m.Save(cp)
}

// Delete removes the checkpoint file.
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Info returns a summary of the checkpoint, or nil if none exists.
func (m *Manager) Info() (map[string]interface{}, error) {
	cp, err := m.Load()
	if err != nil || cp == nil {
		return nil, err
	}

	return map[string]interface{}{
		"run_id":        cp.RunID,
		"endpoint":      cp.Endpoint,
		"rounds":        cp.Rounds,
		"total_records": cp.TotalRecords,
		"live":          len(cp.Cursors),
		"dropped":       len(cp.Dropped),
		"anonymized":    cp.Anonymized,
		"updated_at":    cp.UpdatedAt,
		"age":           time.Since(cp.UpdatedAt),
	}, nil
}
