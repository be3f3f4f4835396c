// Package lookup answers which of a set of package names are present in the
// indexes of a set of repositories, after applying per-repository blacklist
// and rename rules.
package lookup

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/Debian/pkgmonitor/internal/cache"
	"github.com/Debian/pkgmonitor/internal/index"
)

// Class describes a name across all queried repositories.
type Class int

const (
	Absent  Class = iota // missing everywhere
	Present              // present everywhere
	Mixed                // present in some, missing in others
)

// Result lists, for one repository, the sorted names found and not found.
type Result struct {
	Repo    string
	Present []string
	Missing []string
}

// Row is one name of the table universe with its presence per repository, in
// the order of Report.Repos.
type Row struct {
	Name    string
	Present []bool
	Class   Class
}

// Report is the answer to a Query. Rows is only set in table mode.
type Report struct {
	Repos []Result
	Rows  []Row
}

// RepoNames returns the repository names of r in order.
func (r *Report) RepoNames() []string {
	names := make([]string, len(r.Repos))
	for i, res := range r.Repos {
		names[i] = res.Repo
	}
	return names
}

type Lookup struct {
	store *cache.Store
	rules *Rules
	order []string
	log   logrus.FieldLogger
}

// New returns a Lookup over the indexes of store. releaseOrder is the
// canonical repository order; repositories not listed in it are never
// queried.
func New(store *cache.Store, rules *Rules, releaseOrder []string, log logrus.FieldLogger) *Lookup {
	return &Lookup{
		store: store,
		rules: rules,
		order: releaseOrder,
		log:   log,
	}
}

// Order returns the requested repositories that appear in the release
// order, in release order.
func (l *Lookup) Order(requested []string) []string {
	want := make(map[string]bool, len(requested))
	for _, repo := range requested {
		want[repo] = true
	}
	var ordered []string
	for _, repo := range l.order {
		if want[repo] {
			ordered = append(ordered, repo)
			want[repo] = false
		}
	}
	return ordered
}

// candidates applies the rules of repo to names, dropping blacklisted ones.
func (l *Lookup) candidates(repo string, names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		d := l.rules.Apply(repo, name)
		log := l.log.WithFields(logrus.Fields{"repo": repo, "package": name})
		switch {
		case d.Dropped:
			log.WithFields(logrus.Fields{"rule": d.Rule, "rules": d.File}).Debug("blacklisted")
			continue
		case d.Rule != "":
			log.WithFields(logrus.Fields{"rule": d.Rule, "rules": d.File}).Debugf("renamed to %s", d.Name)
		}
		out = append(out, d.Name)
	}
	return out
}

// allowed returns the names of the table universe not blacklisted for repo.
func (l *Lookup) allowed(repo string, universe []string) []string {
	out := make([]string, 0, len(universe))
	for _, name := range universe {
		if d := l.rules.Apply(repo, name); d.Dropped {
			l.log.WithFields(logrus.Fields{"repo": repo, "package": name, "rule": d.Rule}).Debug("blacklisted in table")
			continue
		}
		out = append(out, name)
	}
	return out
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Query checks names against the requested repositories. In table mode all
// repositories are checked against the union of their candidate names, minus
// the names blacklisted for the repository, which are never marked present
// there; otherwise each repository is checked against its own deduplicated
// candidates. A requested repository without index directory is an error
// wrapping cache.ErrNotDirectory.
func (l *Lookup) Query(requested, names []string, table bool) (*Report, error) {
	repos := l.Order(requested)
	perRepo := make(map[string][]string, len(repos))
	var universe []string
	for _, repo := range repos {
		cands := l.candidates(repo, names)
		if table {
			universe = append(universe, cands...)
			perRepo[repo] = cands
		} else {
			perRepo[repo] = unique(cands)
		}
	}
	if table {
		universe = unique(universe)
		sort.Strings(universe)
	}
	for _, repo := range repos {
		l.log.WithField("repo", repo).Debugf("total: %d", len(perRepo[repo]))
	}

	report := &Report{Repos: make([]Result, 0, len(repos))}
	found := make([]map[string]bool, len(repos))
	for i, repo := range repos {
		dir, err := l.store.RequireIndexDir(repo)
		if err != nil {
			return nil, err
		}
		check := perRepo[repo]
		if table {
			check = l.allowed(repo, universe)
		}
		res, present, err := checkRepo(dir, repo, check)
		if err != nil {
			return nil, err
		}
		report.Repos = append(report.Repos, res)
		found[i] = present
	}

	if table && len(repos) > 0 {
		for _, name := range universe {
			row := Row{Name: name, Present: make([]bool, len(repos))}
			some, all := false, true
			for i := range repos {
				row.Present[i] = found[i][name]
				some = some || row.Present[i]
				all = all && row.Present[i]
			}
			switch {
			case all:
				row.Class = Present
			case some:
				row.Class = Mixed
			default:
				row.Class = Absent
			}
			report.Rows = append(report.Rows, row)
		}
	}
	return report, nil
}

func checkRepo(dir, repo string, names []string) (Result, map[string]bool, error) {
	res := Result{Repo: repo, Present: []string{}, Missing: []string{}}
	present := make(map[string]bool)
	shards := make(map[string]map[string]bool)
	for _, name := range names {
		key := index.ShardKey(name)
		lines, ok := shards[key]
		if !ok {
			var err error
			lines, err = readShard(dir, key)
			if err != nil {
				return res, nil, err
			}
			shards[key] = lines
		}
		if lines[name] {
			res.Present = append(res.Present, name)
			present[name] = true
		} else {
			res.Missing = append(res.Missing, name)
		}
	}
	sort.Strings(res.Present)
	sort.Strings(res.Missing)
	return res, present, nil
}

// readShard returns the set of right-trimmed lines of shard key in dir. A
// shard that does not exist holds no names.
func readShard(dir, key string) (map[string]bool, error) {
	lines := make(map[string]bool)
	if !index.ValidKey(key) {
		return lines, nil
	}
	f, err := os.Open(filepath.Join(dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return lines, nil
		}
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines[strings.TrimRightFunc(scanner.Text(), unicode.IsSpace)] = true
	}
	return lines, scanner.Err()
}

// Complete returns the sorted, distinct names starting with prefix in the
// indexes of repos.
func (l *Lookup) Complete(repos []string, prefix string) ([]string, error) {
	seen := make(map[string]bool)
	for _, repo := range repos {
		keys, err := l.store.ListShards(repo)
		if err != nil {
			return nil, err
		}
		dir := l.store.IndexDir(repo)
		for _, key := range keys {
			// Only shards whose key and prefix agree can hold a match.
			if !strings.HasPrefix(key, prefix) && !strings.HasPrefix(prefix, key) {
				continue
			}
			lines, err := readShard(dir, key)
			if err != nil {
				return nil, err
			}
			for name := range lines {
				if strings.HasPrefix(name, prefix) {
					seen[name] = true
				}
			}
		}
	}
	choices := make([]string, 0, len(seen))
	for name := range seen {
		choices = append(choices, name)
	}
	sort.Strings(choices)
	return choices, nil
}
