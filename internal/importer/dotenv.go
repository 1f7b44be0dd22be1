package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/subosito/gotenv"
)

// ParseDotenv reads KEY=VALUE assignments. It accepts export prefixes,
// single and double quotes, and comments. Entries with empty values are
// dropped. Entries are sorted by key.
func ParseDotenv(r io.Reader, file string) ([]DotenvEntry, error) {
	env, err := gotenv.StrictParse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	entries := make([]DotenvEntry, 0, len(env))
	for k, v := range env {
		if strings.TrimSpace(v) == "" {
			continue
		}
		entries = append(entries, DotenvEntry{Key: k, Value: v, File: file})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// ParseDotenvFile opens and parses path.
func ParseDotenvFile(path string) ([]DotenvEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ParseDotenv(f, path)
}

var (
	dotenvKey  = regexp.MustCompile(`^\s*(export\s+)?([A-Za-z_][A-Za-z0-9_.]*)\s*=`)
	dotenvName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	bareValue  = regexp.MustCompile(`^[A-Za-z0-9_./:@+,=-]*$`)
)

// IsDotenvKey reports whether name can be written as a dotenv key.
func IsDotenvKey(name string) bool {
	return dotenvName.MatchString(name)
}

// MergeDotenv rewrites existing so each entry's key holds the entry's value.
// Assignments for other keys, comments and blank lines are kept in place.
// Keys not present yet are appended in the order given. It returns the new
// content and the keys that replaced an existing assignment.
func MergeDotenv(existing []byte, entries []DotenvEntry) ([]byte, []string) {
	pending := make(map[string]string, len(entries))
	for _, e := range entries {
		pending[e.Key] = e.Value
	}

	var (
		out      bytes.Buffer
		replaced []string
		done     = map[string]bool{}
	)
	sc := bufio.NewScanner(bytes.NewReader(existing))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if m := dotenvKey.FindStringSubmatch(line); m != nil {
			if value, ok := pending[m[2]]; ok {
				if done[m[2]] {
					continue
				}
				done[m[2]] = true
				replaced = append(replaced, m[2])
				line = m[1] + m[2] + "=" + QuoteDotenv(value)
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}

	for _, e := range entries {
		if done[e.Key] {
			continue
		}
		done[e.Key] = true
		out.WriteString(e.Key + "=" + QuoteDotenv(e.Value) + "\n")
	}
	return out.Bytes(), replaced
}

// QuoteDotenv formats value so ParseDotenv reads it back unchanged.
func QuoteDotenv(value string) string {
	if bareValue.MatchString(value) {
		return value
	}
	if !strings.ContainsAny(value, "'\n\r") {
		return "'" + value + "'"
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "$", `\$`)
	return `"` + r.Replace(value) + `"`
}
