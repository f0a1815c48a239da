package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Group folder names under the data root
const (
	GroupSupervised   = "Supervised"
	GroupUnsupervised = "Unsupervised"
)

// Source is one recording file found under the data root
type Source struct {
	Path       string
	Group      string
	Subject    string // subject folder name, lowercased
	Supervised bool
}

// Discover walks root/{Supervised,Unsupervised}/<subject>/<file> and returns
// every supported recording, sorted by path. Hidden entries are skipped and a
// missing group folder is not an error.
func Discover(root string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading data root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data root %s is not a directory", root)
	}

	var sources []Source
	for _, group := range []string{GroupSupervised, GroupUnsupervised} {
		groupDir := filepath.Join(root, group)
		subjects, err := os.ReadDir(groupDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", groupDir, err)
		}

		for _, subject := range subjects {
			if !subject.IsDir() || hidden(subject.Name()) {
				continue
			}
			subjectDir := filepath.Join(groupDir, subject.Name())
			files, err := os.ReadDir(subjectDir)
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", subjectDir, err)
			}
			for _, f := range files {
				if f.IsDir() || hidden(f.Name()) || !Supported(f.Name()) {
					continue
				}
				sources = append(sources, Source{
					Path:       filepath.Join(subjectDir, f.Name()),
					Group:      group,
					Subject:    strings.ToLower(subject.Name()),
					Supervised: group == GroupSupervised,
				})
			}
		}
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

// Supported reports whether a file has a readable recording extension
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extCSV, extFIT:
		return true
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
