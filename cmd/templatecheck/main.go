// cmd/templatecheck lints form template documents offline.
//
// Each argument is a template file (.yaml, .yml or .json) or a directory of
// them. With no arguments the seed templates under internal/seed/templates
// are checked. Warnings are printed; any error-severity issue makes the
// command exit non-zero.
//
// Usage:
//
//	go run ./cmd/templatecheck [-warnings=false] [path ...]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("templatecheck: ")

	showWarnings := flag.Bool("warnings", true, "Print warning-severity issues")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{filepath.Join(findProjectRoot(), "internal", "seed", "templates")}
	}

	files, err := collect(paths)
	if err != nil {
		log.Fatal(err)
	}
	if len(files) == 0 {
		log.Fatal("no template files found")
	}

	failed := 0
	for _, file := range files {
		t, err := formschema.LoadTemplateFile(file)
		if err != nil {
			fmt.Printf("FAIL %s\n  %v\n", file, err)
			failed++
			continue
		}
		issues := formschema.Check(t)
		errs := issues.Errors()
		if len(errs) > 0 {
			failed++
			fmt.Printf("FAIL %s (%q, %d error(s))\n", file, t.Name, len(errs))
		} else {
			fmt.Printf("ok   %s (%q)\n", file, t.Name)
		}
		for _, issue := range issues {
			if issue.Severity == formschema.SeverityWarning && !*showWarnings {
				continue
			}
			fmt.Printf("  %s\n", issue)
		}
	}

	if failed > 0 {
		log.Fatalf("%d of %d template(s) have errors", failed, len(files))
	}
	fmt.Printf("\ntemplatecheck: OK, %d template(s) checked\n", len(files))
}

func collect(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !isTemplateFile(e.Name()) {
				continue
			}
			out = append(out, filepath.Join(p, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Fatal("cannot find project root (no go.mod found)")
		}
		dir = parent
	}
}
