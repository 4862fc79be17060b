package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"eventmart/internal/store"
)

func main() {
	dataDir := flag.String("data", "", "file store data directory")
	sqlitePath := flag.String("sqlite", "", "sqlite store database path")
	prefix := flag.String("prefix", "", "only dump keys with this prefix")
	flag.Parse()

	if (*dataDir == "") == (*sqlitePath == "") {
		fmt.Fprintln(os.Stderr, "usage: dumpstore -data <dir> | -sqlite <file> [-prefix <prefix>]")
		os.Exit(1)
	}

	var (
		st  store.Store
		err error
	)
	if *dataDir != "" {
		st, err = store.NewFileStore(afero.NewOsFs(), *dataDir)
	} else {
		st, err = store.NewSQLiteStore(*sqlitePath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	keys, err := st.Keys(*prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list keys: %v\n", err)
		os.Exit(1)
	}

	for _, key := range keys {
		raw, ok := st.Get(key)
		if !ok {
			continue
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "  ", "  "); err != nil {
			fmt.Printf("%s: (unparseable: %v)\n", key, err)
			continue
		}
		fmt.Printf("%s:\n  %s\n", key, pretty.String())
	}
}
