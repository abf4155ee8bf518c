// Package weights consumes the predictor-importance mapping exported by a
// trained classifier. The classifier itself is never invoked here; the
// estimator only needs one non-negative scalar per predictor.
package weights

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"applicability/utils"
)

// Importance maps predictor names to the model's importance scores.
type Importance map[string]float64

// LoadFromFile reads an importance JSON file. When the primary file is
// missing it falls back to the matching `.example.json`, e.g.
// "weights.json" -> "weights.example.json".
func LoadFromFile(path string) (Importance, error) {
	resolvedPath := filepath.Clean(path)
	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		ext := filepath.Ext(resolvedPath)
		base := strings.TrimSuffix(resolvedPath, ext)
		fallbackPath := base + ".example" + ext
		data, err = os.ReadFile(fallbackPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load predictor weights (%s): %w", resolvedPath, err)
		}
		utils.GetLogger().Warn("falling back to example weights", "path", fallbackPath)
	}

	var imp Importance
	if err := json.Unmarshal(data, &imp); err != nil {
		return nil, fmt.Errorf("unable to parse predictor weights: %w", err)
	}
	if len(imp) == 0 {
		return nil, fmt.Errorf("no predictor weights defined in %s", resolvedPath)
	}
	for name, value := range imp {
		if value < 0 {
			return nil, fmt.Errorf("predictor %q has negative importance %v", name, value)
		}
	}
	return imp, nil
}

// Vector aligns the importance mapping to the given predictor order. Every
// predictor must be present in the mapping; extra mapping entries are
// ignored.
func (imp Importance) Vector(predictors []string) ([]float64, error) {
	if len(predictors) == 0 {
		return nil, fmt.Errorf("no predictors given")
	}

	vec := make([]float64, len(predictors))
	for i, name := range predictors {
		value, ok := imp[name]
		if !ok {
			return nil, fmt.Errorf("predictor %q has no importance weight", name)
		}
		vec[i] = value
	}
	return vec, nil
}

// Uniform returns an importance mapping that weights every given predictor
// equally. Useful for unweighted DI computation and for ablation runs that
// zero out individual predictors afterwards.
func Uniform(predictors []string) Importance {
	imp := make(Importance, len(predictors))
	for _, name := range predictors {
		imp[name] = 1.0
	}
	return imp
}

// Without returns a copy of the mapping with the named predictors' weights
// set to zero, so an otherwise identical setup can be refitted with those
// predictors removed from the distance computation.
func (imp Importance) Without(predictors ...string) Importance {
	out := make(Importance, len(imp))
	for name, value := range imp {
		out[name] = value
	}
	for _, name := range predictors {
		if _, ok := out[name]; ok {
			out[name] = 0
		}
	}
	return out
}
