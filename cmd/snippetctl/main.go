// Command snippetctl queries the snippet store from a terminal.
//
// It reads the same configuration as the server and resolves queries with
// the same SearchService, so a query answers identically here and on
// GET /search.
//
//	snippetctl search sort :algo
//	snippetctl --config prod.yaml search --mode precedence -- sort -quick
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
