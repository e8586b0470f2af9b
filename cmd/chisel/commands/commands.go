// Package commands implements the chisel subcommands. Each RunX function
// parses its own flags and returns a process exit code; output goes to the
// provided writers so tests can capture it.
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chisel3d/chisel/pkg/feature"
	"github.com/chisel3d/chisel/pkg/mesh"
	"github.com/chisel3d/chisel/pkg/meshio"
)

// Exit codes shared by all subcommands.
const (
	ExitSuccess      = 0
	ExitCommandError = 1
	ExitDataError    = 2
)

// resolveInput joins a data directory with a relative input path. Absolute
// paths are used as-is.
func resolveInput(dataDir, path string) string {
	if dataDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}

// loadMesh reads a mesh by file extension.
func loadMesh(path string) (*mesh.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return meshio.ReadOBJFile(path)
	case ".3mf":
		return meshio.Read3MFFile(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
}

// saveMesh writes a mesh by file extension.
func saveMesh(path string, m *mesh.Mesh) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return meshio.WriteOBJFile(path, m)
	case ".3mf":
		return meshio.Write3MFFile(path, m)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}

// paramsFile is the YAML shape of a feature-parameter file.
type paramsFile struct {
	AngleThresholdDeg  float64 `yaml:"angle_threshold_deg"`
	KNeighbors         int     `yaml:"k_neighbors"`
	CurvatureThreshold float64 `yaml:"curvature_threshold"`
}

// loadParams merges a YAML parameter file over the defaults. An empty path
// returns the defaults unchanged.
func loadParams(path string) (feature.Params, error) {
	p := feature.DefaultParams()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	var pf paramsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}
	if pf.AngleThresholdDeg != 0 {
		p.AngleThresholdDeg = pf.AngleThresholdDeg
	}
	if pf.KNeighbors != 0 {
		p.KNeighbors = pf.KNeighbors
	}
	if pf.CurvatureThreshold != 0 {
		p.CurvatureThreshold = pf.CurvatureThreshold
	}
	return p, nil
}
