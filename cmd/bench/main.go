package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"harshagw/qryeval/internal/index"
	"harshagw/qryeval/internal/logging"
	"harshagw/qryeval/internal/runner"
	"harshagw/qryeval/internal/search"
	"harshagw/qryeval/internal/trec"
)

const (
	defaultTarget = 10000
	iterations    = 50
)

type queryGroup struct {
	Name    string
	Queries []string
}

func main() {
	benchDir := getBenchDir()

	if len(os.Args) >= 2 && os.Args[1] == "download" {
		target := defaultTarget
		if len(os.Args) >= 3 {
			if t, err := strconv.Atoi(os.Args[2]); err == nil {
				target = t
			}
		}
		fmt.Println("Wikipedia Data Downloader")
		fmt.Println("=========================")
		fmt.Println()
		if err := DownloadCorpus(benchDir, target); err != nil {
			fmt.Printf("\nError: %v\n", err)
			fmt.Println("\nRun 'go run ./cmd/bench download' again to resume.")
			os.Exit(1)
		}
		return
	}

	if err := logging.Setup(0); err != nil {
		fmt.Printf("Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Flush()

	fmt.Println("Query Evaluation Benchmark")
	fmt.Println("==========================")
	fmt.Println()

	benchStart := time.Now()

	dir, err := os.MkdirTemp("", "bench-*")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	idx, err := runIndexing(filepath.Join(benchDir, corpusFile), dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Run 'go run ./cmd/bench download' to download Wikipedia data")
		os.Exit(1)
	}
	defer idx.Close()

	printIndexInfo(idx)

	snap, err := idx.Snapshot()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	models := []search.Model{
		search.NewUnrankedBoolean(),
		search.NewRankedBoolean(),
		search.NewBM25(1.2, 0.75, 0),
		search.NewIndri(2500, 0.4),
	}
	for _, m := range models {
		s, err := search.New(snap, search.Options{Model: m, Analyzer: snap.Analyzer()})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("MODEL %s\n", m)
		fmt.Println("==========================")
		for _, g := range queryGroups {
			runGroup(s, g)
		}
	}

	runBatch(snap, search.NewBM25(1.2, 0.75, 0), nil)
	fb := search.DefaultFeedback()
	runBatch(snap, search.NewIndri(2500, 0.4), &fb)

	fmt.Printf("Total time: %.2f seconds\n", time.Since(benchStart).Seconds())
}

func getBenchDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Dir(filename)
}

func runIndexing(corpusPath, dir string) (*index.Index, error) {
	fmt.Println("INDEXING")
	fmt.Println("--------")

	f, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := index.DefaultConfig(dir)
	cfg.FlushThreshold = 1000
	idx, err := index.Open(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	n, err := idx.ImportJSONL(f)
	if err != nil {
		idx.Close()
		return nil, err
	}
	elapsed := time.Since(start)

	fmt.Printf("  Documents:  %d\n", n)
	fmt.Printf("  Time:       %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Throughput: %.0f docs/sec\n", float64(n)/elapsed.Seconds())
	fmt.Println()
	return idx, nil
}

func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)
	if bytes >= MB {
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	}
	if bytes >= KB {
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	}
	return fmt.Sprintf("%d B", bytes)
}

func printIndexInfo(idx *index.Index) {
	fmt.Println("INDEX INFO")
	fmt.Println("----------")

	segs, err := idx.Segments()
	if err != nil {
		fmt.Printf("  Error: %v\n\n", err)
		return
	}
	fmt.Printf("  Segments: %d\n", len(segs))

	var totalSize int64
	var totalDocs uint64
	for _, seg := range segs {
		var size int64
		if fi, err := os.Stat(seg.Path); err == nil {
			size = fi.Size()
		}
		totalSize += size
		totalDocs += seg.NumDocs
		fmt.Printf("    [%s] %d docs, %s, fields: %v\n", seg.ID, seg.NumDocs, formatBytes(size), seg.Fields)
	}

	fmt.Println()
	fmt.Printf("  Total Size: %s\n", formatBytes(totalSize))
	if totalDocs > 0 {
		fmt.Printf("  Avg/Doc:    %s\n", formatBytes(totalSize/int64(totalDocs)))
	}
	fmt.Println()
}

var queryGroups = []queryGroup{
	{"TERMS", []string{
		"the",
		"united",
		"football",
		"released",
		"highway",
		"periodic",
		"berkeley",
	}},
	{"FIELDS", []string{
		"list.title",
		"county.title",
		"film.title",
		"wikipedia.url",
		"#or( film.title movie.title )",
	}},
	{"PROXIMITY", []string{
		"#near/1( united states )",
		"#near/1( new york )",
		"#near/1( world war )",
		"#near/1( periodic table )",
		"#near/1( #near/1( new york ) city )",
		"#near/3( population census )",
		"#window/4( football player )",
		"#window/8( film director released )",
	}},
	{"SYNONYMS", []string{
		"#syn( film movie cinema )",
		"#syn( county district province )",
		"#syn( #near/1( united states ) america )",
	}},
	{"AND / OR", []string{
		"#and( united states )",
		"#and( the was )",
		"#and( football player )",
		"#and( the united states america )",
		"#or( football basketball baseball hockey tennis )",
		"#or( film movie cinema theatre )",
	}},
	{"WEIGHTED", []string{
		"#wand( 0.7 football 0.3 player )",
		"#wsum( 0.5 county 0.3 population 0.2 government )",
		"#wand( 0.6 #near/1( united states ) 0.4 population )",
	}},
	{"NESTED", []string{
		"#and( #or( football basketball ) #or( player team ) )",
		"#or( #and( united states ) #and( united kingdom ) )",
		"#and( #or( film.title movie.title ) released director )",
		"#and( #syn( film movie ) #near/1( united states ) #window/5( released year ) )",
	}},
}

// runGroup reports the mean latency and result count of each query. Queries
// the model cannot evaluate report the error instead.
func runGroup(s *search.Searcher, g queryGroup) {
	fmt.Println(g.Name)
	for _, q := range g.Queries {
		latency, hits, err := benchmarkQuery(s, q)
		if err != nil {
			fmt.Printf("  %-60s error: %v\n", q, err)
			continue
		}
		fmt.Printf("  %-60s %s  (%d hits)\n", q, formatLatency(latency), hits)
	}
	fmt.Println()
}

func benchmarkQuery(s *search.Searcher, query string) (time.Duration, int, error) {
	out, err := s.Search("bench", query)
	if err != nil {
		return 0, 0, err
	}
	hits := out.Results.Len()

	start := time.Now()
	for i := 0; i < iterations; i++ {
		s.Search("bench", query)
	}
	return time.Since(start) / iterations, hits, nil
}

// runBatch times every benchmark query as one batch, sequentially and with
// one worker per CPU.
func runBatch(snap *index.Snapshot, model search.Model, fb *search.Feedback) {
	label := model.String()
	if fb != nil {
		label += " + feedback"
	}
	fmt.Printf("BATCH %s\n", label)

	s, err := search.New(snap, search.Options{Model: model, Analyzer: snap.Analyzer(), Feedback: fb})
	if err != nil {
		fmt.Printf("  Error: %v\n\n", err)
		return
	}

	var queries []trec.Query
	for _, g := range queryGroups {
		for _, q := range g.Queries {
			queries = append(queries, trec.Query{ID: strconv.Itoa(len(queries) + 1), Text: q})
		}
	}

	for _, workers := range []int{1, runtime.GOMAXPROCS(0)} {
		r := runner.New(s, snap, runner.Options{Workers: workers})
		start := time.Now()
		if _, err := r.Evaluate(context.Background(), queries); err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}
		elapsed := time.Since(start)
		fmt.Printf("  workers=%-3d %d queries in %v (%.1f queries/sec)\n",
			workers, len(queries), elapsed.Round(time.Millisecond), float64(len(queries))/elapsed.Seconds())
	}
	fmt.Println()
}

func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%10.2f µs", float64(d.Nanoseconds())/1000)
}
