//go:build ignore

// Package main generates a synthetic document corpus for benchmarking the
// indexing pipeline.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	minWords  = flag.Int("min-words", 200, "Minimum words per document")
	maxWords  = flag.Int("max-words", 3000, "Maximum words per document")
)

var topics = []string{
	"quarterly report", "meeting notes", "project proposal", "research summary",
	"travel itinerary", "recipe collection", "maintenance log", "reading list",
	"incident review", "design sketch", "budget overview", "interview notes",
}

var vocabulary = []string{
	"system", "document", "analysis", "result", "process", "review", "summary",
	"detail", "schedule", "update", "change", "impact", "decision", "option",
	"budget", "timeline", "quality", "measure", "report", "section", "draft",
	"meeting", "action", "follow", "status", "issue", "risk", "plan", "scope",
	"team", "client", "vendor", "release", "version", "archive", "record",
	"estimate", "forecast", "outcome", "context", "background", "reference",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *numFiles; i++ {
		ext := ".txt"
		if i%3 == 0 {
			ext = ".md"
		}
		name := fmt.Sprintf("doc_%05d%s", i, ext)
		words := *minWords + rng.Intn(*maxWords-*minWords+1)

		var content string
		if ext == ".md" {
			content = markdownDoc(rng, words)
		} else {
			content = plainDoc(rng, words)
		}

		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d documents in %s\n", *numFiles, *outputDir)
}

func plainDoc(rng *rand.Rand, words int) string {
	var b strings.Builder
	topic := topics[rng.Intn(len(topics))]
	b.WriteString(strings.ToUpper(topic))
	b.WriteString("\n\n")
	writeProse(&b, rng, words)
	return b.String()
}

func markdownDoc(rng *rand.Rand, words int) string {
	var b strings.Builder
	topic := topics[rng.Intn(len(topics))]
	fmt.Fprintf(&b, "# %s\n\n", strings.Title(topic))

	sections := 2 + rng.Intn(4)
	perSection := words / sections
	for s := 0; s < sections; s++ {
		fmt.Fprintf(&b, "## %s %d\n\n", strings.Title(vocabulary[rng.Intn(len(vocabulary))]), s+1)
		writeProse(&b, rng, perSection)
		b.WriteString("\n")
	}
	return b.String()
}

func writeProse(b *strings.Builder, rng *rand.Rand, words int) {
	written := 0
	for written < words {
		sentence := 6 + rng.Intn(14)
		for w := 0; w < sentence && written < words; w++ {
			word := vocabulary[rng.Intn(len(vocabulary))]
			if w == 0 {
				word = strings.Title(word)
			} else {
				b.WriteString(" ")
			}
			b.WriteString(word)
			written++
		}
		b.WriteString(". ")
		if rng.Intn(5) == 0 {
			b.WriteString("\n\n")
		}
	}
	b.WriteString("\n")
}
