package branch

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"kardex/backend/internal/domain"
)

//go:embed branches.yaml
var defaultFile []byte

var (
	ErrInvalidDirectory = errors.New("invalid branch directory")
	tableNamePattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type fileFormat struct {
	MovementTypes struct {
		Outgoing int `yaml:"outgoing"`
		Incoming int `yaml:"incoming"`
	} `yaml:"movement_types"`
	Branches []struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Table   string   `yaml:"table"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"branches"`
}

// Directory is the closed set of branches eligible for reconciliation together
// with the alias table used to resolve free-text destinations.
type Directory struct {
	branches []domain.Branch
	byID     map[string]domain.Branch
	aliases  map[string]string
	outgoing int
	incoming int
}

// Default returns the directory compiled into the binary.
func Default() *Directory {
	dir, err := Parse(defaultFile)
	if err != nil {
		panic(fmt.Sprintf("embedded branches.yaml: %v", err))
	}
	return dir
}

func Load(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read branch directory %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Directory, error) {
	var file fileFormat
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDirectory, err)
	}

	if file.MovementTypes.Outgoing == file.MovementTypes.Incoming {
		return nil, fmt.Errorf("%w: outgoing and incoming movement types must differ", ErrInvalidDirectory)
	}
	if len(file.Branches) == 0 {
		return nil, fmt.Errorf("%w: no branches declared", ErrInvalidDirectory)
	}

	dir := &Directory{
		byID:     make(map[string]domain.Branch, len(file.Branches)),
		aliases:  make(map[string]string),
		outgoing: file.MovementTypes.Outgoing,
		incoming: file.MovementTypes.Incoming,
	}

	for _, entry := range file.Branches {
		id := strings.ToLower(strings.TrimSpace(entry.ID))
		if id == "" || id == domain.UnknownBranch {
			return nil, fmt.Errorf("%w: invalid branch id %q", ErrInvalidDirectory, entry.ID)
		}
		if _, exists := dir.byID[id]; exists {
			return nil, fmt.Errorf("%w: duplicate branch id %q", ErrInvalidDirectory, id)
		}
		if !tableNamePattern.MatchString(entry.Table) {
			return nil, fmt.Errorf("%w: branch %q has invalid ledger table %q", ErrInvalidDirectory, id, entry.Table)
		}

		b := domain.Branch{
			ID:    id,
			Name:  strings.TrimSpace(entry.Name),
			Table: entry.Table,
		}
		if b.Name == "" {
			b.Name = id
		}
		for _, alias := range entry.Aliases {
			key := normalizeToken(alias)
			if key == "" {
				continue
			}
			if owner, taken := dir.aliases[key]; taken && owner != id {
				return nil, fmt.Errorf("%w: alias %q claimed by %q and %q", ErrInvalidDirectory, key, owner, id)
			}
			dir.aliases[key] = id
			b.Aliases = append(b.Aliases, key)
		}

		dir.byID[id] = b
		dir.branches = append(dir.branches, b)
	}

	sort.Slice(dir.branches, func(i, j int) bool { return dir.branches[i].ID < dir.branches[j].ID })
	return dir, nil
}

func (d *Directory) OutgoingType() int { return d.outgoing }

func (d *Directory) IncomingType() int { return d.incoming }

func (d *Directory) Branches() []domain.Branch {
	out := make([]domain.Branch, len(d.branches))
	copy(out, d.branches)
	return out
}

func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.branches))
	for _, b := range d.branches {
		ids = append(ids, b.ID)
	}
	return ids
}

// Others returns every valid branch except id.
func (d *Directory) Others(id string) []string {
	ids := make([]string, 0, len(d.branches))
	for _, b := range d.branches {
		if b.ID != id {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func (d *Directory) Valid(id string) bool {
	_, ok := d.byID[id]
	return ok
}

func (d *Directory) Branch(id string) (domain.Branch, bool) {
	b, ok := d.byID[id]
	return b, ok
}
