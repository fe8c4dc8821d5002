package levels

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/service"
)

var (
	ErrLevelSetNotFound = errors.New("level set not found")
	ErrInvalidLevelSet  = errors.New("invalid level set")
)

// BuiltinName is the level set served from the binary when the levels
// directory has no file of that name
const BuiltinName = "classic"

//go:embed classic.json
var builtinData []byte

// Manager handles level set loading and caching
type Manager struct {
	levelsDir  string
	grid       engine.Grid
	defaultSet *engine.LevelSet
	sets       map[string]*engine.LevelSet
	mu         sync.RWMutex
}

var _ service.LevelManager = (*Manager)(nil)

// NewManager creates a new level set manager over levelsDir
func NewManager(levelsDir string) (*Manager, error) {
	if _, err := os.Stat(levelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("levels directory does not exist: %s", levelsDir)
	}

	m := &Manager{
		levelsDir: levelsDir,
		grid:      engine.DefaultGrid(),
		sets:      make(map[string]*engine.LevelSet),
	}

	if err := m.loadDefaultLevelSet(); err != nil {
		return nil, fmt.Errorf("failed to load default level set: %w", err)
	}

	return m, nil
}

// Builtin returns a fresh copy of the level set compiled into the binary
func Builtin() (*engine.LevelSet, error) {
	set, err := engine.ParseLevelSet(builtinData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse builtin level set: %w", err)
	}
	if err := engine.ValidateLevelSet(set, engine.DefaultGrid()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevelSet, err)
	}
	return set, nil
}

// LoadLevelSet loads a level set by name, with or without the .json suffix
func (m *Manager) LoadLevelSet(name string) (*engine.LevelSet, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("%w: %q", ErrLevelSetNotFound, name)
	}

	m.mu.RLock()
	if set, exists := m.sets[name]; exists {
		m.mu.RUnlock()
		return set, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if set, exists := m.sets[name]; exists {
		return set, nil
	}

	set, err := m.readLevelSet(name)
	if err != nil {
		return nil, err
	}

	m.sets[name] = set
	return set, nil
}

// readLevelSet reads name from disk, falling back to the builtin set
func (m *Manager) readLevelSet(name string) (*engine.LevelSet, error) {
	data, err := os.ReadFile(filepath.Join(m.levelsDir, name+".json"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read level set file: %w", err)
		}
		if name == BuiltinName {
			return Builtin()
		}
		return nil, ErrLevelSetNotFound
	}

	set, err := engine.ParseLevelSet(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidLevelSet, name, err)
	}
	if set.Name == "" {
		set.Name = name
	}
	if err := engine.ValidateLevelSet(set, m.grid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevelSet, err)
	}
	return set, nil
}

// ListLevelSets returns information about all available level sets. Files
// that fail validation are skipped with a warning.
func (m *Manager) ListLevelSets() ([]*service.LevelSetInfo, error) {
	entries, err := os.ReadDir(m.levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}

	var infos []*service.LevelSetInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		set, err := m.LoadLevelSet(id)
		if err != nil {
			log.Warnf("Skipping level set %s: %v", entry.Name(), err)
			continue
		}
		infos = append(infos, m.info(entry.Name(), id, set))
	}

	if len(infos) == 0 {
		if set, err := m.LoadLevelSet(BuiltinName); err == nil {
			infos = append(infos, m.info("", BuiltinName, set))
		}
	}

	return infos, nil
}

func (m *Manager) info(filename, id string, set *engine.LevelSet) *service.LevelSetInfo {
	return &service.LevelSetInfo{
		Filename:    filename,
		LevelSetID:  id,
		Name:        set.Name,
		Description: set.Description,
		Levels:      len(set.Levels),
		GridSize:    set.Grid(m.grid).Size,
	}
}

// GetDefault returns the default level set
func (m *Manager) GetDefault() *engine.LevelSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultSet
}

// SetDefault sets the default level set by name
func (m *Manager) SetDefault(name string) error {
	set, err := m.LoadLevelSet(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultSet = set
	return nil
}

// ReloadLevelSet drops a cached level set and reads it again from disk
func (m *Manager) ReloadLevelSet(name string) error {
	name = strings.TrimSuffix(name, ".json")
	m.mu.Lock()
	delete(m.sets, name)
	m.mu.Unlock()

	_, err := m.LoadLevelSet(name)
	return err
}

// RefreshCache reloads all cached level sets from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.sets = make(map[string]*engine.LevelSet)
	m.mu.Unlock()

	return m.loadDefaultLevelSet()
}

// loadDefaultLevelSet picks classic, else the first valid file, else the
// builtin set
func (m *Manager) loadDefaultLevelSet() error {
	set, err := m.LoadLevelSet(BuiltinName)
	if err != nil {
		infos, listErr := m.ListLevelSets()
		if listErr != nil || len(infos) == 0 {
			return err
		}
		set, err = m.LoadLevelSet(infos[0].LevelSetID)
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.defaultSet = set
	m.mu.Unlock()
	return nil
}

// SaveLevelSet validates and writes a level set to disk
func (m *Manager) SaveLevelSet(name string, set *engine.LevelSet) error {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("%w: bad level set name %q", ErrInvalidLevelSet, name)
	}
	if err := engine.ValidateLevelSet(set, m.grid); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevelSet, err)
	}
	if set.Name == "" {
		set.Name = name
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level set: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.levelsDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write level set file: %w", err)
	}

	m.mu.Lock()
	m.sets[name] = set
	m.mu.Unlock()

	return nil
}
