package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	xdraw "golang.org/x/image/draw"
	"gopkg.in/yaml.v3"
)

// modelTunables are the runtime cutoffs read from the bundle's thresholds.yaml.
type modelTunables struct {
	Confidence float32 `yaml:"confidence"`
	IoU        float32 `yaml:"iou"`
	InputSize  int     `yaml:"input_size"`
}

// Model wraps an ONNX YOLO object-detection session as a Detector.
type Model struct {
	session  *ort.AdvancedSession
	labels   []string
	tunables modelTunables
	anchors  int
	inBounds image.Rectangle
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadModel initializes the ONNX session and label map from a bundle dir
// containing yolov8n.onnx, label_map.json, and thresholds.yaml.
func LoadModel(bundleDir string) (*Model, error) {
	if bundleDir == "" {
		return nil, errors.New("bundleDir is empty")
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(bundleDir, "yolov8n.onnx")
	labelsPath := filepath.Join(bundleDir, "label_map.json")
	thresholdsPath := filepath.Join(bundleDir, "thresholds.yaml")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	tn, err := loadTunables(thresholdsPath)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	size := tn.InputSize
	anchors := anchorCount(size)

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(labels)), int64(anchors)))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Model{
		session:  session,
		labels:   labels,
		tunables: tn,
		anchors:  anchors,
		inBounds: image.Rect(0, 0, size, size),
		input:    input,
		output:   output,
	}, nil
}

// anchorCount is the YOLO prediction count for a square input: one cell per
// position at strides 8, 16, and 32.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		c := size / stride
		n += c * c
	}
	return n
}

// Detect runs the detector on one image and returns labeled boxes in the
// original image's coordinate space, sorted by descending confidence.
func (m *Model) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if m == nil || m.session == nil {
		return nil, errors.New("vision model not initialized")
	}
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := letterbox(img.Bounds(), m.inBounds.Dx())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.fillInput(img, lb)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	dets := m.decode(m.output.GetData(), lb, img.Bounds())
	dets = nonMaxSuppress(dets, float64(m.tunables.IoU))
	sort.SliceStable(dets, func(i, j int) bool { return dets[i].Confidence > dets[j].Confidence })
	return dets, nil
}

// letterboxParams describe how the source image maps into the square input.
type letterboxParams struct {
	scale  float64
	dx, dy int
	w, h   int
}

// letterbox scales bounds to fit a size x size square, centered with padding.
func letterbox(bounds image.Rectangle, size int) letterboxParams {
	sw, sh := float64(bounds.Dx()), float64(bounds.Dy())
	if sw <= 0 || sh <= 0 {
		return letterboxParams{scale: 1}
	}
	scale := float64(size) / sw
	if s := float64(size) / sh; s < scale {
		scale = s
	}
	w := int(sw * scale)
	h := int(sh * scale)
	return letterboxParams{
		scale: scale,
		dx:    (size - w) / 2,
		dy:    (size - h) / 2,
		w:     w,
		h:     h,
	}
}

// fillInput letterboxes the image onto a grey canvas and writes normalized
// CHW RGB floats into the preallocated input tensor.
func (m *Model) fillInput(img image.Image, lb letterboxParams) {
	size := m.inBounds.Dx()
	canvas := image.NewRGBA(m.inBounds)
	grey := color.RGBA{R: 114, G: 114, B: 114, A: 255}
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(grey), image.Point{}, xdraw.Src)

	target := image.Rect(lb.dx, lb.dy, lb.dx+lb.w, lb.dy+lb.h)
	xdraw.ApproxBiLinear.Scale(canvas, target, img, img.Bounds(), xdraw.Src, nil)

	data := m.input.GetData()
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := canvas.RGBAAt(x, y)
			i := y*size + x
			data[i] = float32(c.R) / 255
			data[plane+i] = float32(c.G) / 255
			data[2*plane+i] = float32(c.B) / 255
		}
	}
}

// decode converts the raw (4+classes) x anchors output into detections in the
// source image's coordinates, dropping predictions below the confidence cutoff.
func (m *Model) decode(raw []float32, lb letterboxParams, bounds image.Rectangle) []Detection {
	var dets []Detection
	n := m.anchors
	for a := 0; a < n; a++ {
		best := -1
		var bestScore float32
		for c := range m.labels {
			if s := raw[(4+c)*n+a]; s > bestScore {
				bestScore = s
				best = c
			}
		}
		if best < 0 || bestScore < m.tunables.Confidence {
			continue
		}

		cx, cy := float64(raw[a]), float64(raw[n+a])
		w, h := float64(raw[2*n+a]), float64(raw[3*n+a])

		x0 := (cx - w/2 - float64(lb.dx)) / lb.scale
		y0 := (cy - h/2 - float64(lb.dy)) / lb.scale
		x1 := (cx + w/2 - float64(lb.dx)) / lb.scale
		y1 := (cy + h/2 - float64(lb.dy)) / lb.scale

		box := image.Rect(int(x0), int(y0), int(x1), int(y1)).Intersect(bounds)
		if box.Empty() {
			continue
		}

		dets = append(dets, Detection{
			Label:      m.labels[best],
			Confidence: float64(bestScore),
			Box:        box,
		})
	}
	return dets
}

// nonMaxSuppress keeps the highest-confidence box per overlapping cluster,
// applied per label.
func nonMaxSuppress(dets []Detection, iouCut float64) []Detection {
	sorted := append([]Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })

	var kept []Detection
	for _, d := range sorted {
		drop := false
		for _, k := range kept {
			if k.Label == d.Label && iou(k.Box, d.Box) > iouCut {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, d)
		}
	}
	return kept
}

// iou is intersection-over-union of two boxes.
func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float64(inter.Dx()) * float64(inter.Dy())
	union := float64(a.Dx())*float64(a.Dy()) + float64(b.Dx())*float64(b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

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

func loadTunables(path string) (modelTunables, error) {
	tn := modelTunables{Confidence: 0.25, IoU: 0.45, InputSize: 640}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tn, nil
		}
		return tn, err
	}

	var wrapper struct {
		Detector modelTunables `yaml:"detector"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return tn, err
	}
	if wrapper.Detector.Confidence > 0 {
		tn.Confidence = wrapper.Detector.Confidence
	}
	if wrapper.Detector.IoU > 0 {
		tn.IoU = wrapper.Detector.IoU
	}
	if wrapper.Detector.InputSize > 0 {
		tn.InputSize = wrapper.Detector.InputSize
	}
	return tn, nil
}

// resolveSharedLibraryPath attempts to locate a platform-specific onnxruntime
// shared library. If ONNXRUNTIME_SHARED_LIBRARY_PATH is set, it wins.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
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
