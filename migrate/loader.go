package migrate

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	version "github.com/hashicorp/go-version"
	"github.com/spf13/afero"

	"github.com/tectonic-db/tectonic/operation"
)

// FormatVersion is written into every artifact. The loader accepts any
// artifact below the next major version.
const FormatVersion = "1.0.0"

var formatConstraint = version.MustConstraints(version.NewConstraint(">= 1.0.0, < 2.0.0"))

// document is the on-disk artifact shape: pure data, loadable anywhere.
type document struct {
	FormatVersion string                `json:"format_version"`
	App           string                `json:"app"`
	Name          string                `json:"name"`
	DependsOn     []Dependency          `json:"depends_on,omitempty"`
	Operations    []operation.Persisted `json:"operations"`
}

// artifactName matches NNNN_label.json.
var artifactName = regexp.MustCompile(`^(\d{4})_([A-Za-z0-9_]+)\.json$`)

// Loader reads and writes migration artifacts in one directory. The
// filesystem is abstracted so tests run against an in-memory fs.
type Loader struct {
	fs  afero.Fs
	dir string
	app string
}

// NewLoader returns a loader rooted at dir for one app label.
func NewLoader(fs afero.Fs, dir, app string) *Loader {
	return &Loader{fs: fs, dir: dir, app: app}
}

// List loads every artifact in the directory, sorted by sequence number.
// A directory that does not exist yet is an empty migration set.
func (l *Loader) List() ([]*Migration, error) {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		if exists, _ := afero.DirExists(l.fs, l.dir); !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", l.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !artifactName.MatchString(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	migrations := make([]*Migration, 0, len(names))
	for _, name := range names {
		m, err := l.load(name)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}
	return migrations, nil
}

// Load reads one artifact by migration name (without the .json suffix).
func (l *Loader) Load(name string) (*Migration, error) {
	filename := name + ".json"
	exists, err := afero.Exists(l.fs, filepath.Join(l.dir, filename))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, name)
	}
	return l.load(filename)
}

func (l *Loader) load(filename string) (*Migration, error) {
	path := filepath.Join(l.dir, filename)
	raw, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse migration %s: %w", path, err)
	}

	v, err := version.NewVersion(doc.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("migration %s has invalid format_version %q: %w", path, doc.FormatVersion, err)
	}
	if !formatConstraint.Check(v) {
		return nil, fmt.Errorf("migration %s uses format %s; this build supports %s", path, doc.FormatVersion, formatConstraint)
	}

	ops, err := operation.Decode(doc.Operations)
	if err != nil {
		return nil, fmt.Errorf("migration %s: %w", path, err)
	}

	name := strings.TrimSuffix(filename, ".json")
	if doc.Name != "" {
		name = doc.Name
	}
	app := doc.App
	if app == "" {
		app = l.app
	}
	return &Migration{App: app, Name: name, DependsOn: doc.DependsOn, Operations: ops}, nil
}

// Save writes an artifact and returns its path. The migration's name must
// already carry its sequence prefix.
func (l *Loader) Save(m *Migration) (string, error) {
	persisted, err := operation.Encode(m.Operations)
	if err != nil {
		return "", err
	}
	doc := document{
		FormatVersion: FormatVersion,
		App:           m.App,
		Name:          m.Name,
		DependsOn:     m.DependsOn,
		Operations:    persisted,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize migration %s: %w", m.Name, err)
	}

	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory %s: %w", l.dir, err)
	}
	path := filepath.Join(l.dir, m.Name+".json")
	if err := afero.WriteFile(l.fs, path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write migration %s: %w", path, err)
	}
	return path, nil
}

// NextSequence returns the sequence number after the highest artifact on
// disk, starting at 1 for an empty directory.
func (l *Loader) NextSequence() (int, error) {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		if exists, _ := afero.DirExists(l.fs, l.dir); !exists {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to read migrations directory %s: %w", l.dir, err)
	}
	max := 0
	for _, entry := range entries {
		m := artifactName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// SequenceName builds the NNNN_label artifact name.
func SequenceName(seq int, label string) string {
	if label == "" {
		label = "auto"
	}
	return fmt.Sprintf("%04d_%s", seq, label)
}

// Latest returns the newest migration on disk, or nil when there is none.
func (l *Loader) Latest() (*Migration, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}
