package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// StringList accepts either a single YAML scalar or a sequence of scalars.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = StringList{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Target is one URL template of a repository together with the
// distributions and architectures to expand it with.
type Target struct {
	URL   string     `yaml:"url"`
	Dists StringList `yaml:"dist"`
	Archs StringList `yaml:"arch"`
}

// URLs expands the {dist} and {arch} placeholders of the template, for every
// distribution and, within it, every architecture.
func (t Target) URLs() []string {
	urls := make([]string, 0, len(t.Dists)*len(t.Archs))
	for _, dist := range t.Dists {
		for _, arch := range t.Archs {
			r := strings.NewReplacer("{dist}", dist, "{arch}", arch)
			urls = append(urls, r.Replace(t.URL))
		}
	}
	return urls
}

// Repository is a named remote package source.
type Repository struct {
	Name    string   `yaml:"name"`
	Targets []Target `yaml:"repository"`
}

// LoadRepositories reads all repository definition files in dir, in file
// name order. Empty files are skipped.
func LoadRepositories(dir string) ([]Repository, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var repos []Repository
	for _, path := range paths {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var defs []Repository
		if err := yaml.Unmarshal(b, &defs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, def := range defs {
			if err := def.validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		repos = append(repos, defs...)
	}
	return repos, nil
}

func (r Repository) validate() error {
	if r.Name == "" {
		return fmt.Errorf("repository without name")
	}
	if strings.ContainsAny(r.Name, `/\`) || r.Name == "." || r.Name == ".." {
		return fmt.Errorf("repository name %q is not usable as a directory name", r.Name)
	}
	for _, t := range r.Targets {
		if t.URL == "" {
			return fmt.Errorf("repository %q: target without url", r.Name)
		}
	}
	return nil
}
