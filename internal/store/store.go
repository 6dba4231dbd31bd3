// Package store caches fetched readings on disk as one CSV file per device,
// so the offline viewer can browse them without a backend. Data is stored
// in ~/.tempdash-data/ unless another directory is configured.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/luki/tempdash/internal/sensor"
)

const (
	dirName    = ".tempdash-data"
	timeLayout = time.RFC3339Nano
)

// DiskStore handles persistent CSV storage of device readings.
// Files are stored as <dir>/<device>.csv with the format:
//
//	timestamp,value
type DiskStore struct {
	dir string

	mu sync.Mutex // serializes Save's read-merge-write
}

// New creates a disk store in dir, creating it if needed. An empty dir
// selects the default data directory.
func New(dir string) (*DiskStore, error) {
	if dir == "" {
		dir = DataDir()
		if dir == "" {
			return nil, errors.New("cannot find home dir")
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (d *DiskStore) Dir() string { return d.dir }

func (d *DiskStore) path(device string) string {
	return filepath.Join(d.dir, url.PathEscape(device)+".csv")
}

// Save merges readings into the device's file. Rows are deduplicated by
// timestamp (newer values win) and kept in chronological order.
func (d *DiskStore) Save(device string, readings []sensor.Reading) error {
	if device == "" {
		return errors.New("device id is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.Load(device)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	merged := make(map[int64]sensor.Reading, len(existing)+len(readings))
	for _, r := range existing {
		merged[r.Timestamp.UnixNano()] = r
	}
	for _, r := range readings {
		merged[r.Timestamp.UnixNano()] = r
	}

	rows := make([]sensor.Reading, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	f, err := os.CreateTemp(d.dir, url.PathEscape(device)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	w := csv.NewWriter(f)
	w.Write([]string{"timestamp", "value"})
	for _, r := range rows {
		w.Write([]string{
			r.Timestamp.Format(timeLayout),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, d.path(device))
}

// ListDevices returns the devices with cached readings, sorted by id.
func (d *DiskStore) ListDevices() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}

	var devices []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".csv"))
		if err != nil {
			continue
		}
		devices = append(devices, id)
	}
	sort.Strings(devices)
	return devices, nil
}

// Load reads all cached readings for a device.
func (d *DiskStore) Load(device string) ([]sensor.Reading, error) {
	return LoadFile(d.path(device))
}

// LoadFile reads all readings from a CSV file. Malformed rows are skipped.
func LoadFile(path string) ([]sensor.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var readings []sensor.Reading
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == "timestamp" {
			continue
		}
		if len(row) < 2 {
			continue
		}

		t, err := time.Parse(timeLayout, row[0])
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}

		readings = append(readings, sensor.Reading{Timestamp: t, Value: v})
	}

	return readings, nil
}

// DataDir returns the path to the default data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, dirName)
}
