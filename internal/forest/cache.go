package forest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"

	"github.com/KaramelBytes/voltlens/internal/utils"
)

// Fingerprint hashes everything that determines a trained model: the
// training matrix, predictor and target names, seed and tuning grid.
// Worker count is excluded since it does not affect the result.
func Fingerprint(d *Data, p Params) string {
	h := sha256.New()
	var buf [8]byte
	putF := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	putI := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	fmt.Fprintf(h, "v%d\x00", FormatVersion)
	for _, name := range d.Predictors {
		fmt.Fprintf(h, "%s\x00", name)
	}
	fmt.Fprintf(h, "->%s\x00", d.Target)
	putI(p.Seed)
	putI(int64(p.Trees))
	putI(int64(p.MinLeaf))
	putI(int64(p.MaxDepth))
	putI(int64(p.Folds))
	for _, m := range p.Mtry {
		putI(int64(m))
	}
	putI(int64(d.Len()))
	for i, row := range d.X {
		for _, v := range row {
			putF(v)
		}
		putF(d.Y[i])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Save writes the model as JSON, replacing any existing file atomically.
func (m *Model) Save(path string) error {
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Load reads a model saved by Save.
func Load(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return nil, fmt.Errorf("parse model %s: %w", path, ErrEmpty)
	}
	return &m, nil
}

// CacheOptions controls LoadOrTrain.
type CacheOptions struct {
	Path string
	// Verify compares the cached fingerprint with the expected one and
	// retrains on mismatch. When false a present artifact is always reused.
	Verify bool
	// Force retrains even when a usable artifact exists.
	Force bool
}

// LoadOrTrain returns the cached model at opt.Path when present (and
// fresh, if verification is on); otherwise it calls train and saves the
// result. cached reports whether the model came from disk.
func LoadOrTrain(opt CacheOptions, fingerprint string, train func() (*Model, error), log *slog.Logger) (m *Model, cached bool, err error) {
	if log == nil {
		log = slog.Default()
	}
	if !opt.Force {
		m, err = Load(opt.Path)
		switch {
		case err == nil && (!opt.Verify || (m.Fingerprint == fingerprint && m.Version == FormatVersion)):
			log.Info("using cached model", "path", opt.Path, "id", m.ID, "trained_at", m.TrainedAt)
			return m, true, nil
		case err == nil:
			log.Warn("cached model is stale, retraining", "path", opt.Path, "cached", short(m.Fingerprint), "expected", short(fingerprint))
		case errors.Is(err, fs.ErrNotExist):
			log.Info("no cached model, training", "path", opt.Path)
		default:
			return nil, false, err
		}
	}
	m, err = train()
	if err != nil {
		return nil, false, err
	}
	if err := m.Save(opt.Path); err != nil {
		return nil, false, err
	}
	log.Info("saved model", "path", opt.Path, "id", m.ID, "mtry", m.Forest.Mtry)
	return m, false, nil
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
