package lookup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

// groupRef matches Python-style \N group references in replacements.
var groupRef = regexp2.MustCompile(`\\(\d+)`, regexp2.None)

type rename struct {
	expr        string
	match       *regexp2.Regexp // anchored at the start of the name
	all         *regexp2.Regexp
	replacement string
}

type pattern struct {
	expr string
	re   *regexp2.Regexp // anchored at the start of the name
}

type repoRules struct {
	blacklist []pattern
	renames   []rename
}

type ruleFile struct {
	name  string
	repos map[string]repoRules
}

// Rules holds the blacklist and rename rules of all rule files, in file name
// order.
type Rules struct {
	files []ruleFile
}

// Decision is the outcome of applying Rules to one requested name.
type Decision struct {
	Name    string // name to look up, possibly renamed
	Dropped bool   // blacklisted for the repository
	Rule    string // pattern that renamed or dropped the name, if any
	File    string // rule file Rule comes from
}

// expandable turns a replacement using \N group references into the
// ${N} form understood by regexp2, keeping literal dollar signs literal.
func expandable(repl string) (string, error) {
	return groupRef.Replace(strings.ReplaceAll(repl, "$", "$$"), `$${$1}`, -1, -1)
}

// compile compiles a rule pattern. Patterns support lookarounds and
// backreferences.
func compile(expr string) (*regexp2.Regexp, error) {
	return regexp2.Compile(expr, regexp2.None)
}

// compileStart compiles expr so that it only matches at the start of a name.
func compileStart(expr string) (*regexp2.Regexp, error) {
	return compile(`\A(?:` + expr + `)`)
}

// matches reports whether re matches s. Matching only fails on a
// MatchTimeout, which rules never set.
func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

type ruleDef struct {
	Repo     string    `yaml:"repo"`
	Packages yaml.Node `yaml:"packages"`
}

func parseRepoRules(def ruleDef) (repoRules, error) {
	var rr repoRules
	if def.Packages.Kind == 0 || def.Packages.Tag == "!!null" {
		return rr, nil
	}
	if def.Packages.Kind != yaml.SequenceNode {
		return rr, fmt.Errorf("repo %q: packages must be a list", def.Repo)
	}
	items := def.Packages.Content
	if len(items) == 0 {
		return rr, nil
	}
	// The first entry decides whether this is a blacklist or a rename list.
	renames := items[0].Kind == yaml.MappingNode
	for _, item := range items {
		switch {
		case renames && item.Kind == yaml.MappingNode:
			for i := 0; i+1 < len(item.Content); i += 2 {
				expr, repl := item.Content[i].Value, item.Content[i+1].Value
				match, err := compileStart(expr)
				if err != nil {
					return rr, fmt.Errorf("repo %q: %w", def.Repo, err)
				}
				all, err := compile(expr)
				if err != nil {
					return rr, fmt.Errorf("repo %q: %w", def.Repo, err)
				}
				replacement, err := expandable(repl)
				if err != nil {
					return rr, fmt.Errorf("repo %q: %w", def.Repo, err)
				}
				rr.renames = append(rr.renames, rename{
					expr:        expr,
					match:       match,
					all:         all,
					replacement: replacement,
				})
			}
		case !renames && item.Kind == yaml.ScalarNode:
			re, err := compileStart(item.Value)
			if err != nil {
				return rr, fmt.Errorf("repo %q: %w", def.Repo, err)
			}
			rr.blacklist = append(rr.blacklist, pattern{expr: item.Value, re: re})
		default:
			return rr, fmt.Errorf("repo %q: cannot mix blacklist patterns and rename rules", def.Repo)
		}
	}
	return rr, nil
}

// parseRuleFile parses one YAML rule file. name identifies the file in errors.
func parseRuleFile(name string, b []byte) (ruleFile, error) {
	rf := ruleFile{name: name, repos: make(map[string]repoRules)}
	var defs []ruleDef
	if err := yaml.Unmarshal(b, &defs); err != nil {
		return rf, fmt.Errorf("%s: %w", name, err)
	}
	for _, def := range defs {
		rr, err := parseRepoRules(def)
		if err != nil {
			return rf, fmt.Errorf("%s: %w", name, err)
		}
		// A later entry for the same repo within one file replaces the
		// earlier one.
		rf.repos[def.Repo] = rr
	}
	return rf, nil
}

// LoadRules reads every rule file in dir. A missing dir means no rules.
func LoadRules(dir string) (*Rules, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	rules := &Rules{}
	for _, path := range paths {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		rf, err := parseRuleFile(filepath.Base(path), b)
		if err != nil {
			return nil, err
		}
		rules.files = append(rules.files, rf)
	}
	return rules, nil
}

// Apply runs the rules for repo against name. Rule files are consulted in
// order. The first matching rename rewrites the name and no further renames
// are tried. A blacklist pattern matching the current name drops it.
func (r *Rules) Apply(repo, name string) Decision {
	d := Decision{Name: name}
	if r == nil {
		return d
	}
	renamed := false
	for _, rf := range r.files {
		rr, ok := rf.repos[repo]
		if !ok {
			continue
		}
		if !renamed {
			for _, rn := range rr.renames {
				if !matches(rn.match, d.Name) {
					continue
				}
				name, err := rn.all.Replace(d.Name, rn.replacement, -1, -1)
				if err != nil {
					continue
				}
				d.Name = name
				d.Rule = rn.expr
				d.File = rf.name
				renamed = true
				break
			}
		}
		for _, p := range rr.blacklist {
			if matches(p.re, d.Name) {
				return Decision{Name: d.Name, Dropped: true, Rule: p.expr, File: rf.name}
			}
		}
	}
	return d
}
