package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/concordlabs/concord/internal/contract"
)

// manifest is the optional concord.yaml at a project root, mapping files to
// roles explicitly when the filename heuristics are not enough.
type manifest struct {
	Files map[string]string `yaml:"files"`
}

func loadManifest(root string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, "concord.yaml"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// roleFor resolves a file's role: manifest first, then filename heuristics.
// Files with no recognizable role are excluded from the set.
func roleFor(rel string, m *manifest) (contract.FileRole, bool) {
	if m != nil {
		if r, ok := m.Files[rel]; ok {
			switch contract.FileRole(r) {
			case contract.RolePrivileged, contract.RoleBridge, contract.RoleUIScript, contract.RoleMarkup:
				return contract.FileRole(r), true
			}
			return "", false
		}
	}

	base := strings.ToLower(filepath.Base(rel))
	switch {
	case base == "main.js" || base == "index.js" && filepath.Dir(rel) == "main":
		return contract.RolePrivileged, true
	case base == "preload.js" || base == "bridge.js":
		return contract.RoleBridge, true
	case strings.HasSuffix(base, ".html") || strings.HasSuffix(base, ".htm"):
		return contract.RoleMarkup, true
	case strings.HasSuffix(base, ".js"):
		return contract.RoleUIScript, true
	}
	return "", false
}
