package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Artifact file names inside a model bundle directory. Bundles are exported
// by the training pipeline: the ONNX graph, the class index to label map,
// and (risk model only) per-feature importances in input-column order.
const (
	modelFile       = "model.onnx"
	labelMapFile    = "label_map.json"
	importancesFile = "feature_importances.json"
)

// ONNX graph input/output names the training export pins.
const (
	graphInputName  = "input"
	graphOutputName = "probabilities"
)

// positiveClassProbes are the label spellings accepted as the high-risk
// class, checked in order, case-insensitively.
var positiveClassProbes = []string{"high", "1", "true"}

// onnxModel wraps one tabular ONNX session. The runtime reuses a single
// pre-allocated input/output tensor pair, so Run is serialized by a mutex.
type onnxModel struct {
	session *ort.AdvancedSession
	labels  []string

	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]

	mu sync.Mutex
}

// initRuntime resolves and initializes the shared onnxruntime library once
// per process. Safe to call before each model load.
func initRuntime(bundleDir string) error {
	if ort.IsInitialized() {
		return nil
	}
	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// loadONNXModel opens a bundle directory and allocates a session expecting
// featureWidth input columns.
func loadONNXModel(bundleDir string, featureWidth int) (*onnxModel, error) {
	if bundleDir == "" {
		return nil, errors.New("bundleDir is empty")
	}
	if err := initRuntime(bundleDir); err != nil {
		return nil, err
	}

	modelPath := filepath.Join(bundleDir, modelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, err := loadLabels(filepath.Join(bundleDir, labelMapFile))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(featureWidth)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{graphInputName},
		[]string{graphOutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &onnxModel{
		session: session,
		labels:  labels,
		input:   input,
		output:  output,
	}, nil
}

// probabilities runs inference and returns one probability per class label.
func (m *onnxModel) probabilities(features []float32) ([]float32, error) {
	if m == nil || m.session == nil {
		return nil, errors.New("model not initialized")
	}
	if len(features) != len(m.input.GetData()) {
		return nil, fmt.Errorf("feature width mismatch: got %d, model expects %d",
			len(features), len(m.input.GetData()))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), features)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	raw := m.output.GetData()
	out := make([]float32, len(m.labels))
	copy(out, raw)
	return out, nil
}

func (m *onnxModel) close() {
	if m == nil {
		return
	}
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

// ONNXRiskModel is the binary high-risk classifier. The positive-class
// column is resolved once at load time; an artifact whose labels match no
// accepted spelling is rejected outright rather than silently scored
// against an arbitrary column.
type ONNXRiskModel struct {
	model       *onnxModel
	positiveIdx int
	importances []float64
}

// LoadRiskModel opens the risk classifier bundle.
func LoadRiskModel(bundleDir string, featureWidth int) (*ONNXRiskModel, error) {
	m, err := loadONNXModel(bundleDir, featureWidth)
	if err != nil {
		return nil, err
	}

	idx, err := positiveClassIndex(m.labels)
	if err != nil {
		m.close()
		return nil, err
	}

	imp, err := loadImportances(filepath.Join(bundleDir, importancesFile), featureWidth)
	if err != nil {
		m.close()
		return nil, err
	}

	return &ONNXRiskModel{model: m, positiveIdx: idx, importances: imp}, nil
}

// PredictHighRisk returns the positive-class probability and the maximum
// class probability.
func (r *ONNXRiskModel) PredictHighRisk(_ context.Context, features []float32) (float64, float64, error) {
	probs, err := r.model.probabilities(features)
	if err != nil {
		return 0, 0, err
	}
	prob := float64(probs[r.positiveIdx])
	conf := 0.0
	for _, p := range probs {
		if float64(p) > conf {
			conf = float64(p)
		}
	}
	return prob, conf, nil
}

// FeatureImportances returns the bundle's importances, or nil when the
// bundle carried none.
func (r *ONNXRiskModel) FeatureImportances() []float64 {
	return r.importances
}

// Close releases the underlying session.
func (r *ONNXRiskModel) Close() { r.model.close() }

// ONNXDepartmentModel is the multi-class department router.
type ONNXDepartmentModel struct {
	model *onnxModel
}

// LoadDepartmentModel opens the department classifier bundle.
func LoadDepartmentModel(bundleDir string, featureWidth int) (*ONNXDepartmentModel, error) {
	m, err := loadONNXModel(bundleDir, featureWidth)
	if err != nil {
		return nil, err
	}
	return &ONNXDepartmentModel{model: m}, nil
}

// PredictDepartment returns the argmax label and its probability.
func (d *ONNXDepartmentModel) PredictDepartment(_ context.Context, features []float32) (string, float64, error) {
	probs, err := d.model.probabilities(features)
	if err != nil {
		return "", 0, err
	}
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return d.model.labels[best], float64(probs[best]), nil
}

// Close releases the underlying session.
func (d *ONNXDepartmentModel) Close() { d.model.close() }

// positiveClassIndex finds the high-risk column by probing the accepted
// label spellings in order.
func positiveClassIndex(labels []string) (int, error) {
	for _, probe := range positiveClassProbes {
		for i, label := range labels {
			if strings.EqualFold(strings.TrimSpace(label), probe) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("no positive class among labels %v: expected one of %v", labels, positiveClassProbes)
}

// loadLabels reads label_map.json, accepting either a JSON array of labels
// or an {"index": "label"} object.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, errors.New("empty label map")
	}

	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// loadImportances reads the optional importances file. Absence is fine;
// a present file with the wrong width is not.
func loadImportances(path string, featureWidth int) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read importances: %w", err)
	}
	var imp []float64
	if err := json.Unmarshal(data, &imp); err != nil {
		return nil, fmt.Errorf("parse importances: %w", err)
	}
	if len(imp) != featureWidth {
		return nil, fmt.Errorf("importances width mismatch: got %d, want %d", len(imp), featureWidth)
	}
	return imp, nil
}

// resolveSharedLibraryPath locates the platform onnxruntime shared library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise probe common locations.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/opt/homebrew/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
