// Package envfile converts between dotenv documents and key/value entries
// for bulk import and export.
package envfile

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
)

// Entry is one KEY=value pair of a dotenv document.
type Entry struct {
	Key   string
	Value string
}

// Parse reads a dotenv document into entries sorted by key. Comments and
// blank lines are dropped; quoting and escapes follow dotenv rules.
func Parse(src string) ([]Entry, error) {
	values, err := godotenv.Unmarshal(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env document: %w", err)
	}

	entries := make([]Entry, 0, len(values))
	for key, value := range values {
		entries = append(entries, Entry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return entries, nil
}

// Render produces a dotenv document from entries.
func Render(entries []Entry) (string, error) {
	values := make(map[string]string, len(entries))
	for _, entry := range entries {
		values[entry.Key] = entry.Value
	}

	doc, err := godotenv.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to render env document: %w", err)
	}
	return doc, nil
}
