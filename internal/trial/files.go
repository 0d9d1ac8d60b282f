package trial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/errs"
)

var (
	digitsRe = regexp.MustCompile(`\d+`)
	ringRe   = regexp.MustCompile(`ring([^_]+)`)
)

// BaseName is the filename stem for one ring on one day, e.g.
// "20250612_ring7_test". Runs are appended by FileName.
func BaseName(day time.Time, ringID string) string {
	return fmt.Sprintf("%s_ring%s_test", day.Format("20060102"), ringID)
}

// FileName returns "<base>_<run>.json". Runs are 1-based.
func FileName(base string, run int) string {
	return fmt.Sprintf("%s_%d.json", base, run)
}

// RunNumber returns the last decimal integer in name, or -1 if it has none.
func RunNumber(name string) int {
	nums := digitsRe.FindAllString(filepath.Base(name), -1)
	if len(nums) == 0 {
		return -1
	}
	n, err := strconv.Atoi(nums[len(nums)-1])
	if err != nil {
		return -1
	}
	return n
}

// RingID extracts the ring identifier from a name produced by BaseName.
// It returns "" when the name does not follow that pattern.
func RingID(name string) string {
	m := ringRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return ""
	}
	return m[1]
}

// List returns the .json files in dir ordered by run number.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrMissingData, "read %s: %v", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, errors.Wrapf(errs.ErrMissingData, "no .json files in %s", dir)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return RunNumber(names[i]) < RunNumber(names[j])
	})
	return names, nil
}

// Read loads and parses one trial file.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	rec, err := Parse(data)
	if err != nil {
		return Record{}, errors.Wrap(err, filepath.Base(path))
	}
	return rec, nil
}

// Store writes the raw device object to dir/name, indented, and returns the
// full path. The file is written under a temporary name and renamed into
// place so a crash never leaves a truncated record behind.
func Store(dir, name string, raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", errors.Wrapf(errs.ErrMalformedRecord, "indent: %v", err)
	}
	buf.WriteByte('\n')

	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "close %s", name)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "rename %s", name)
	}
	return path, nil
}
