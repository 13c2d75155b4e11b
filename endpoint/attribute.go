package endpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Attribute is a single sysfs text attribute holding one integer.
type Attribute struct {
	Path string
}

func Attr(dir string, name string) Attribute {
	return Attribute{Path: filepath.Join(dir, name)}
}

func (a Attribute) Read() (int, error) {
	b, err := os.ReadFile(a.Path)
	if err != nil {
		return 0, fmt.Errorf("error reading %q: %w", a.Path, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("error reading %q: empty attribute", a.Path)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("error parsing %q: %w", a.Path, err)
	}
	return v, nil
}

func (a Attribute) ReadString() (string, error) {
	b, err := os.ReadFile(a.Path)
	if err != nil {
		return "", fmt.Errorf("error reading %q: %w", a.Path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (a Attribute) Write(v int) error {
	// No O_TRUNC or O_CREATE: some sysfs attributes refuse them at open time.
	// The value must go out in a single write call.
	f, err := os.OpenFile(a.Path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("error opening %q: %w", a.Path, err)
	}
	data := strconv.Itoa(v) + "\n"
	_, err = f.WriteString(data)
	if err == nil && !onSysfs(f) {
		// plain files keep the tail of a longer previous value
		err = f.Truncate(int64(len(data)))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("error writing %q: %w", a.Path, err)
	}
	return nil
}

// Writable reports whether the current process is allowed to write the attribute.
func (a Attribute) Writable() bool {
	return unix.Access(a.Path, unix.W_OK) == nil
}

// Enumerate returns the ids captured by the first group of pattern over the
// entry names of dir, sorted and without duplicates.
func Enumerate(dir string, pattern *regexp.Regexp) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error listing %q: %w", dir, err)
	}
	seen := make(map[int]bool, len(entries))
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		m := pattern.FindStringSubmatch(e.Name())
		if len(m) < 2 {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
