// Package index builds and describes the shard files of a repository.
//
// A repository's index is a directory of shards. Each shard holds package
// names, one per line, in the order they were found in the listings. The
// shard a name belongs to is given by ShardKey alone, so index building and
// lookups agree on it without sharing any state.
package index

import (
	"strings"
	"unicode/utf8"
)

// libPrefix names are so numerous that they get a shard per fourth letter.
const libPrefix = "lib"

// ShardKey returns the name of the shard holding name: its first four
// characters if it starts with "lib", otherwise its first character.
func ShardKey(name string) string {
	n := 1
	if strings.HasPrefix(name, libPrefix) {
		n = 4
	}
	end := 0
	for i := 0; i < n && end < len(name); i++ {
		_, size := utf8.DecodeRuneInString(name[end:])
		end += size
	}
	return name[:end]
}

// ValidKey reports whether key can be used as a file name inside an index
// directory.
func ValidKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}
