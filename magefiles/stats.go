package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// statsRoots are the source trees Stats counts.
var statsRoots = []string{"cmd", "internal", "pkg"}

// Stats prints Go lines of code per source tree as a JSON record.
func Stats() error {
	record := map[string]int{}
	for _, root := range statsRoots {
		prod, test, err := goLines(root)
		if err != nil {
			return err
		}
		record[root+"_loc_prod"] = prod
		record[root+"_loc_test"] = test
		record["go_loc_prod"] += prod
		record["go_loc_test"] += test
	}
	record["go_loc"] = record["go_loc_prod"] + record["go_loc_test"]

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

// goLines counts lines in the .go files under root, split into production
// and test code. A missing root counts as empty.
func goLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		n := bytes.Count(data, []byte("\n"))
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}
