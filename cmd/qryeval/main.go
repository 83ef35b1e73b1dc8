// Command qryeval evaluates a file of structured queries against an index
// and writes trec_eval results.
//
//	qryeval <parameterFile>
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/config"
	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/index"
	"harshagw/qryeval/internal/logging"
	"harshagw/qryeval/internal/metrics"
	"harshagw/qryeval/internal/runner"
	"harshagw/qryeval/internal/search"
	"harshagw/qryeval/internal/trec"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <parameterFile>\n", os.Args[0])
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1])
	stop()
	logging.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error (%s): %v\n", errs.KindName(err), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, paramPath string) error {
	params, err := config.Load(paramPath)
	if err != nil {
		return err
	}
	if err := logging.Setup(params.Verbosity); err != nil {
		return err
	}

	start := time.Now()
	idx, err := index.Open(index.Config{Dir: params.IndexPath, Analyzer: params.Analyzer})
	if err != nil {
		return err
	}
	defer idx.Close()

	snap, err := idx.Snapshot()
	if err != nil {
		return err
	}
	log.Infof("index %s: %d documents, %s analyzer", params.IndexPath, snap.NumDocs(), idx.AnalyzerName())

	opts := search.Options{Model: params.Model, Analyzer: snap.Analyzer(), Feedback: params.Feedback}
	if params.Feedback != nil && params.InitialRankingFile != "" {
		opts.Rankings, err = trec.LoadRankings(params.InitialRankingFile, snap)
		if err != nil {
			return err
		}
	}
	searcher, err := search.New(snap, opts)
	if err != nil {
		return err
	}

	queries, err := readQueries(params.QueryFilePath)
	if err != nil {
		return err
	}

	ropts := runner.Options{Workers: params.Workers}
	if params.MetricsAddr != "" {
		ropts.Metrics = metrics.New()
		shutdown := ropts.Metrics.StartServer(params.MetricsAddr)
		defer shutdown(context.Background())
	}

	out, err := os.Create(params.TrecEvalOutputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	results := trec.NewWriter(out, params.RunID, params.ResultLimit)

	var expansions *trec.Writer
	if params.Feedback != nil && params.ExpansionQueryFile != "" {
		f, err := os.Create(params.ExpansionQueryFile)
		if err != nil {
			return fmt.Errorf("create expansion file: %w", err)
		}
		defer f.Close()
		expansions = trec.NewWriter(f, params.RunID, params.ResultLimit)
	}

	summary, err := runner.New(searcher, snap, ropts).Run(ctx, queries, results, expansions)
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}

	log.Infof("evaluated %d queries (%d expanded, %d empty) with %s in %s",
		summary.Queries, summary.Expanded, summary.Empty, params.Model, time.Since(start))
	return nil
}

func readQueries(path string) ([]trec.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer f.Close()
	return trec.ReadQueries(bufio.NewReader(f))
}
