// Command filecachectl is a small operability tool for a filecache cache
// root: retrieve a single file, run the eviction engine on demand, clear the
// cache, or print aggregate size/entry-count stats.
package main

import (
	"fmt"
	"os"
)

// run.go imports filecache/diskdrv directly (for -databricks-disk), which
// is what registers the "local" and "s3" drivers with filecache's registry
// loader via their init() functions. A -config file's [disk "name"]
// sections can only resolve because that import exists somewhere in this
// binary.

func main() {
	if err := run(os.Args[1:], defaultDeps()); err != nil {
		if cerr, ok := err.(*cliError); ok {
			if !cerr.printed && cerr.msg != "" {
				fmt.Fprintln(os.Stderr, cerr.msg)
			}
			os.Exit(cerr.exitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
