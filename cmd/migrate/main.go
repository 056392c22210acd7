package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/aktagon/content-pipeline/internal/artifact"
	"github.com/aktagon/content-pipeline/internal/imagegen"
	"github.com/aktagon/content-pipeline/internal/metablock"
	"github.com/aktagon/content-pipeline/internal/store"
)

var variantPattern = regexp.MustCompile(`^hero_variant_([A-Za-z0-9]+)\.png$`)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <normalize-metadata|remove-orphans> <base-directory>")
	}

	command := os.Args[1]
	baseDir := os.Args[2]

	s, err := store.Open(baseDir)
	if err != nil {
		log.Fatal(err)
	}

	switch command {
	case "normalize-metadata":
		changed, err := normalizeMetadata(s)
		if err != nil {
			log.Fatal(err)
		}
		if changed {
			log.Printf("Rewrote %s with a canonical metadata block", s.Path(artifact.ArticleHTML))
		} else {
			log.Printf("%s already canonical", s.Path(artifact.ArticleHTML))
		}
	case "remove-orphans":
		removed, err := removeOrphans(s, bufio.NewReader(os.Stdin), os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("\nRemoved %d orphaned variants\n", removed)
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// normalizeMetadata rewrites article.html so it carries exactly one canonical
// metadata block. Articles written with the attribute form, or with several
// blocks, are converted; articles without a parsable block are left alone.
func normalizeMetadata(s *store.DirStore) (bool, error) {
	data, err := s.Read(artifact.ArticleHTML)
	if err != nil {
		return false, err
	}
	html := string(data)

	meta, err := metablock.Extract(html)
	if err != nil {
		return false, fmt.Errorf("%s: %w", artifact.ArticleHTML, err)
	}
	normalized, err := metablock.Embed(html, meta)
	if err != nil {
		return false, err
	}
	if normalized == html {
		return false, nil
	}
	return true, s.Write(artifact.ArticleHTML, []byte(normalized))
}

// removeOrphans deletes hero variants that image_metadata.json no longer lists,
// asking for confirmation on each one.
func removeOrphans(s *store.DirStore, reader *bufio.Reader, out io.Writer) (int, error) {
	var meta imagegen.ImageMetadata
	if err := s.ReadJSON(artifact.ImageMetadata, &meta); err != nil {
		return 0, fmt.Errorf("reading %s: %w", artifact.ImageMetadata, err)
	}
	listed := make(map[string]bool, len(meta.Variants))
	for _, v := range meta.Variants {
		listed[filepath.Base(v)] = true
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		return 0, fmt.Errorf("reading outputs directory: %w", err)
	}
	var orphans []string
	for _, e := range entries {
		if e.IsDir() || !variantPattern.MatchString(e.Name()) || listed[e.Name()] {
			continue
		}
		orphans = append(orphans, e.Name())
	}
	sort.Strings(orphans)

	removed := 0
	for _, name := range orphans {
		if !confirmDelete(reader, out, name) {
			fmt.Fprintf(out, "  SKIP: %s\n", name)
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir(), name)); err != nil {
			log.Printf("Error removing %s: %v", name, err)
			continue
		}
		removed++
		fmt.Fprintf(out, "  REMOVED: %s\n", name)
	}
	return removed, nil
}

func confirmDelete(reader *bufio.Reader, out io.Writer, name string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", name)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Fprintln(out, "  Please enter y or n.")
		}
	}
}
