package trace

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

var csvHeader = []string{"step", "time", "theta1", "theta2", "omega1", "omega2", "accel1", "accel2", "energy"}

type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type Metadata struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Theta1      float64   `json:"theta1"`
	Theta2      float64   `json:"theta2"`
	Length1     float64   `json:"length1"`
	Length2     float64   `json:"length2"`
	Timestep    float64   `json:"timestep"`
	Gravity     float64   `json:"gravity"`
	Steps       int       `json:"steps"`
	Every       int       `json:"every"`
	Samples     int       `json:"samples"`
	EnergyDrift float64   `json:"energy_drift"`
}

// Save writes metadata.json and samples.csv into a new run directory and
// returns the run id. ID, Timestamp, Samples and EnergyDrift are filled in.
func (s *Store) Save(meta Metadata, samples []Sample) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("trace_%d", now.UnixNano())
	meta.Timestamp = now
	meta.Samples = len(samples)
	meta.EnergyDrift = EnergyDrift(samples)
	if math.IsNaN(meta.EnergyDrift) || math.IsInf(meta.EnergyDrift, 0) {
		// diverged run; JSON cannot carry NaN or Inf
		meta.EnergyDrift = -1
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	if err := writeMetadata(metaFile, meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		return "", err
	}
	if err := writeSamples(csvFile, samples); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// writeMetadata encodes meta to wc and closes it.
func writeMetadata(wc io.WriteCloser, meta Metadata) error {
	enc := json.NewEncoder(wc)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

// writeSamples writes the csv header and one row per sample to wc and
// closes it.
func writeSamples(wc io.WriteCloser, samples []Sample) error {
	w := csv.NewWriter(wc)
	if err := w.Write(csvHeader); err != nil {
		wc.Close()
		return err
	}
	for _, smp := range samples {
		row := []string{
			strconv.Itoa(smp.Step),
			formatFloat(smp.Time),
			formatFloat(smp.Theta1), formatFloat(smp.Theta2),
			formatFloat(smp.Omega1), formatFloat(smp.Omega2),
			formatFloat(smp.Accel1), formatFloat(smp.Accel2),
			formatFloat(smp.Energy),
		}
		if err := w.Write(row); err != nil {
			wc.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("trace: row %d: %w", i+1, err)
		}
		vals := make([]float64, len(rec)-1)
		for j, field := range rec[1:] {
			if vals[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("trace: row %d column %s: %w", i+1, csvHeader[j+1], err)
			}
		}
		samples = append(samples, Sample{
			Step: step, Time: vals[0],
			Theta1: vals[1], Theta2: vals[2],
			Omega1: vals[3], Omega2: vals[4],
			Accel1: vals[5], Accel2: vals[6],
			Energy: vals[7],
		})
	}

	return samples, nil
}
