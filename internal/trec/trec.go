// Package trec reads and writes the text formats exchanged with trec_eval:
// query files, initial rankings, result rankings and expansion queries.
package trec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/search"
)

// DefaultRunID labels result rows when no run id is configured.
const DefaultRunID = "ls"

// DefaultLimit is the number of rows written per query.
const DefaultLimit = 100

// Query is one line of a query file.
type Query struct {
	ID   string
	Text string
}

// ReadQueries parses "qid:query" lines. Blank lines are skipped.
func ReadQueries(r io.Reader) ([]Query, error) {
	var queries []Query
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		qid, query, ok := strings.Cut(text, ":")
		if !ok {
			return nil, errs.Syntaxf("line %d: missing ':' in query line %q", line, text)
		}
		queries = append(queries, Query{ID: strings.TrimSpace(qid), Text: query})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

// IDResolver maps external document ids to internal ones.
type IDResolver interface {
	InternalID(externalID string) (int, error)
}

// ReadRankings parses "qid Q0 externalId rank score runId" lines into one
// ScoreList per query. Lines of a query must be contiguous. Any malformed
// line or unknown document fails the whole file.
func ReadRankings(r io.Reader, ids IDResolver) (map[string]*search.ScoreList, error) {
	rankings := make(map[string]*search.ScoreList)
	var (
		qid     string
		current *search.ScoreList
	)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 {
			return nil, errs.Dataf("ranking line %d: want at least 5 fields, got %d", line, len(fields))
		}

		if fields[0] != qid {
			if _, seen := rankings[fields[0]]; seen {
				return nil, errs.Dataf("ranking line %d: query %s is not contiguous", line, fields[0])
			}
			qid = fields[0]
			current = search.NewScoreList()
			rankings[qid] = current
		}

		doc, err := ids.InternalID(fields[2])
		if err != nil {
			return nil, errs.Dataf("ranking line %d: %v", line, err)
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, errs.Dataf("ranking line %d: invalid score %q", line, fields[4])
		}
		current.Add(doc, score)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading rankings: %w", err)
	}
	return rankings, nil
}

// LoadRankings reads a ranking file from disk.
func LoadRankings(path string, ids IDResolver) (map[string]*search.ScoreList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRankings(f, ids)
}

// IDNamer maps internal document ids to external ones.
type IDNamer interface {
	ExternalID(doc int) (string, error)
}

// Writer writes result rows in trec_eval format.
type Writer struct {
	w     *bufio.Writer
	runID string
	limit int
}

// NewWriter returns a writer labelling rows with runID and keeping the top limit rows per query.
func NewWriter(w io.Writer, runID string, limit int) *Writer {
	if runID == "" {
		runID = DefaultRunID
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Writer{w: bufio.NewWriter(w), runID: runID, limit: limit}
}

// WriteResults writes the best rows of results with 1-based ranks. An empty
// list produces a single dummy row so that trec_eval sees every query.
func (w *Writer) WriteResults(qid string, results *search.ScoreList, ids IDNamer) error {
	ranked := results.Clone()
	ranked.Sort()
	ranked.Truncate(w.limit)

	if ranked.Len() == 0 {
		_, err := fmt.Fprintf(w.w, "%s Q0 dummy 1 0 %s\n", qid, w.runID)
		return err
	}
	for i, d := range ranked.Docs() {
		ext, err := ids.ExternalID(d.DocID)
		if err != nil {
			return fmt.Errorf("query %s: %w", qid, err)
		}
		if _, err := fmt.Fprintf(w.w, "%s Q0 %s %d %.12f %s\n", qid, ext, i+1, d.Score, w.runID); err != nil {
			return err
		}
	}
	return nil
}

// WriteExpansion writes "qid: expansion".
func (w *Writer) WriteExpansion(qid, expansion string) error {
	_, err := fmt.Fprintf(w.w, "%s: %s\n", qid, expansion)
	return err
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}
