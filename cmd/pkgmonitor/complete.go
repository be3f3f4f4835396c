package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Debian/pkgmonitor/internal/lookup"
)

// printCompletions prints the package names of repos starting with the last
// argument, one per line.
func (i *invocation) printCompletions(l *lookup.Lookup, repos, args []string, w io.Writer) error {
	var prefix string
	if len(args) > 0 {
		prefix = args[len(args)-1]
	}
	choices, err := l.Complete(l.Order(repos), prefix)
	if err != nil {
		return err
	}
	for _, choice := range choices {
		fmt.Fprintln(w, choice)
	}
	return nil
}

func (i *invocation) completeRepos(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	_, store, _, err := i.setup()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	repos, err := store.ListIndexRepos()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var choices []string
	for _, repo := range repos {
		if strings.HasPrefix(repo, toComplete) {
			choices = append(choices, repo)
		}
	}
	return choices, cobra.ShellCompDirectiveNoFileComp
}

func (i *invocation) completePackages(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, store, log, err := i.setup()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	repos, err := i.requestedRepos(store)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	if len(repos) == 0 {
		if repos, err = store.ListIndexRepos(); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
	}
	l := lookup.New(store, nil, cfg.ReleaseOrder, log)
	choices, err := l.Complete(l.Order(repos), toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return choices, cobra.ShellCompDirectiveNoFileComp
}
