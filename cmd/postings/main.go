package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"

	"harshagw/qryeval/internal/index"
	"harshagw/qryeval/internal/logging"
	"harshagw/qryeval/internal/search"
	"harshagw/qryeval/internal/segment"
)

const defaultIndexDir = ".history"

// resultsShown is the number of ranked documents printed per query.
const resultsShown = 10

type REPL struct {
	idx      *index.Index
	model    search.Model
	feedback search.Feedback
}

func main() {
	dir := defaultIndexDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := logging.Setup(1); err != nil {
		fmt.Printf("Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Flush()

	fmt.Println("Structured query REPL")
	fmt.Println()
	printHelp()
	fmt.Println()

	idx, err := index.Open(index.DefaultConfig(dir))
	if err != nil {
		fmt.Printf("Error opening index: %v\n", err)
		os.Exit(1)
	}

	r := &REPL{idx: idx, model: search.NewRankedBoolean(), feedback: search.DefaultFeedback()}
	fmt.Printf("Index loaded from %s (%d segments, %s analyzer), model %s\n\n",
		dir, idx.NumSegments(), idx.AnalyzerName(), r.model)

	p := prompt.New(
		r.executor,
		completer,
		prompt.OptionPrefix("qry >> "),
		prompt.OptionTitle("qryeval"),
	)
	p.Run()
}

var commands = []prompt.Suggest{
	{Text: "index", Description: "Add or replace a document"},
	{Text: "delete", Description: "Delete a document"},
	{Text: "load", Description: "Import a JSON-lines file"},
	{Text: "flush", Description: "Write buffered documents to a segment"},
	{Text: "merge", Description: "Merge all segments"},
	{Text: "model", Description: "Show or set the retrieval model"},
	{Text: "query", Description: "Evaluate a structured query"},
	{Text: "explain", Description: "Show parsed and optimized trees"},
	{Text: "expand", Description: "Show the feedback expansion of a query"},
	{Text: "terms", Description: "List indexed terms"},
	{Text: "segments", Description: "List segments"},
	{Text: "doc", Description: "Load a stored document"},
	{Text: "dump", Description: "Dump postings or deletions"},
	{Text: "help", Description: "Show help"},
	{Text: "quit", Description: "Exit"},
}

func completer(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  index <docID> <json>             - Add or replace a document")
	fmt.Println("  delete <docID>                   - Delete a document")
	fmt.Println("  load <file.jsonl>                - Import documents, one JSON object with an \"id\" per line")
	fmt.Println("  flush                            - Write buffered documents to a new segment")
	fmt.Println("  merge                            - Merge segments, drop deleted docs")
	fmt.Println("  model [name [key=value ...]]     - Show or set the model (unrankedboolean, rankedboolean,")
	fmt.Println("                                     bm25 k_1= b= k_3=, indri mu= lambda=)")
	fmt.Println("  query <text>                     - Evaluate a query, e.g. #and( #near/2( new york ) apple.title )")
	fmt.Println("  explain <text>                   - Show the parsed and optimized operator trees")
	fmt.Println("  expand [docs=N terms=N mu=F] <text> - Show the feedback expansion for a query")
	fmt.Println("  terms <field> [prefix]           - List indexed terms of a field")
	fmt.Println("  segments                         - List all segments")
	fmt.Println("  doc <segment> <docNum>           - Load stored document")
	fmt.Println("  dump postings <field> <term>     - Show posting list")
	fmt.Println("  dump deletions <segment>         - Show deletion bitmap")
	fmt.Println("  help                             - Show this help")
	fmt.Println("  quit                             - Exit")
}

func (r *REPL) executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "index":
		r.cmdIndex(rest)
	case "delete":
		r.cmdDelete(args)
	case "load":
		r.cmdLoad(args)
	case "flush":
		r.cmdFlush()
	case "merge":
		r.cmdMerge()
	case "model":
		r.cmdModel(args)
	case "query":
		r.cmdQuery(rest)
	case "explain":
		r.cmdExplain(rest)
	case "expand":
		r.cmdExpand(args)
	case "terms":
		r.cmdTerms(args)
	case "segments":
		r.cmdSegments()
	case "doc":
		r.cmdDoc(args)
	case "dump":
		r.cmdDump(args)
	case "help":
		printHelp()
	case "quit", "exit":
		fmt.Println("Goodbye!")
		r.idx.Close()
		logging.Flush()
		os.Exit(0)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
	}
}

func (r *REPL) cmdIndex(rest string) {
	docID, jsonStr, ok := strings.Cut(rest, " ")
	if !ok {
		fmt.Println("Usage: index <docID> <json>")
		return
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		fmt.Printf("Error parsing JSON: %v\n", err)
		return
	}
	if err := r.idx.Index(docID, doc); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Indexed '%s' (%d fields)\n", docID, len(doc))
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: delete <docID>")
		return
	}
	if err := r.idx.Delete(args[0]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Deleted '%s'\n", args[0])
}

func (r *REPL) cmdLoad(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: load <file.jsonl>")
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer f.Close()

	n, err := r.idx.ImportJSONL(f)
	if err != nil {
		fmt.Printf("Error after %d documents: %v\n", n, err)
		return
	}
	fmt.Printf("Loaded %d documents. %d segments.\n", n, r.idx.NumSegments())
}

func (r *REPL) cmdFlush() {
	if err := r.idx.Flush(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Flushed. %d segments.\n", r.idx.NumSegments())
}

func (r *REPL) cmdMerge() {
	if err := r.idx.ForceMerge(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Merged. %d segments.\n", r.idx.NumSegments())
}

func (r *REPL) cmdModel(args []string) {
	if len(args) == 0 {
		fmt.Printf("Model: %s (default operator %s)\n", r.model, r.model.DefaultOperator())
		return
	}
	model, err := parseModel(args[0], args[1:])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	r.model = model
	fmt.Printf("Model: %s\n", r.model)
}

// parseModel builds a model from a name and key=value constants, starting
// from commonly used defaults.
func parseModel(name string, params []string) (search.Model, error) {
	kind, err := search.ParseModelKind(name)
	if err != nil {
		return search.Model{}, err
	}
	var m search.Model
	switch kind {
	case search.UnrankedBoolean:
		m = search.NewUnrankedBoolean()
	case search.RankedBoolean:
		m = search.NewRankedBoolean()
	case search.BM25:
		m = search.NewBM25(1.2, 0.75, 0)
	case search.Indri:
		m = search.NewIndri(2500, 0.4)
	}

	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return search.Model{}, fmt.Errorf("expected key=value, got %q", p)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return search.Model{}, fmt.Errorf("%s: %w", key, err)
		}
		switch strings.ToLower(key) {
		case "k_1", "k1":
			m.K1 = f
		case "b":
			m.B = f
		case "k_3", "k3":
			m.K3 = f
		case "mu":
			m.Mu = f
		case "lambda":
			m.Lambda = f
		default:
			return search.Model{}, fmt.Errorf("unknown model parameter %q", key)
		}
	}
	return m, m.Validate()
}

func (r *REPL) searcher(feedback *search.Feedback) (*index.Snapshot, *search.Searcher, error) {
	snap, err := r.idx.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	s, err := search.New(snap, search.Options{Model: r.model, Analyzer: snap.Analyzer(), Feedback: feedback})
	if err != nil {
		return nil, nil, err
	}
	return snap, s, nil
}

func (r *REPL) cmdQuery(text string) {
	if text == "" {
		fmt.Println("Usage: query <text>")
		return
	}
	snap, s, err := r.searcher(nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	out, err := s.Search("repl", text)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printResults(snap, out.Results)
}

func printResults(snap *index.Snapshot, results *search.ScoreList) {
	if results.Len() == 0 {
		fmt.Println("No results")
		return
	}
	total := results.Len()
	ranked := results.Clone()
	ranked.Sort()
	ranked.Truncate(resultsShown)

	fmt.Printf("%d matches (showing %d):\n", total, ranked.Len())
	for i, d := range ranked.Docs() {
		ext, err := snap.ExternalID(d.DocID)
		if err != nil {
			ext = fmt.Sprintf("<%v>", err)
		}
		fmt.Printf("  %2d. %s (%.6f)\n", i+1, ext, d.Score)
	}
}

func (r *REPL) cmdExplain(text string) {
	if text == "" {
		fmt.Println("Usage: explain <text>")
		return
	}
	_, s, err := r.searcher(nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	parsed, err := s.Parse(text)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Parsed:    %s\n", parsed)
	optimized, _ := s.Prepare(text)
	fmt.Printf("Optimized: %s\n", optimized)
}

func (r *REPL) cmdExpand(args []string) {
	fb := r.feedback
	for len(args) > 0 {
		key, value, ok := strings.Cut(args[0], "=")
		if !ok {
			break
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			fmt.Printf("Error: %s: %v\n", key, err)
			return
		}
		switch key {
		case "docs":
			fb.Docs = int(n)
		case "terms":
			fb.Terms = int(n)
		case "mu":
			fb.Mu = n
		case "weight":
			fb.OrigWeight = n
		default:
			fmt.Printf("Error: unknown feedback parameter %q\n", key)
			return
		}
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Println("Usage: expand [docs=N terms=N mu=F weight=F] <text>")
		return
	}

	snap, s, err := r.searcher(&fb)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	out, err := s.Search("repl", strings.Join(args, " "))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Expansion: %s\n", out.Expansion)
	fmt.Printf("Query:     %s\n", out.Tree)
	printResults(snap, out.Results)
}

func (r *REPL) cmdTerms(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: terms <field> [prefix]")
		return
	}
	prefix := ""
	if len(args) > 1 {
		prefix = args[1]
	}
	terms, err := r.idx.Terms(args[0], prefix)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%d terms: %s\n", len(terms), strings.Join(terms, " "))
}

func (r *REPL) cmdSegments() {
	segs, err := r.idx.Segments()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(segs) == 0 {
		fmt.Println("No segments")
		return
	}
	fmt.Printf("%d segments:\n", len(segs))
	for _, seg := range segs {
		fmt.Printf("  %s: %d docs, %d deleted, fields %v\n", seg.ID, seg.NumDocs, seg.NumDeleted, seg.Fields)
	}
}

func (r *REPL) cmdDoc(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: doc <segment> <docNum>")
		return
	}
	docNum, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Printf("Invalid docNum: %v\n", err)
		return
	}
	doc, err := r.idx.LoadDoc(args[0], docNum)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	data, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(data))
}

func (r *REPL) cmdDump(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: dump postings <field> <term>")
		fmt.Println("       dump deletions <segment>")
		return
	}

	switch args[0] {
	case "postings":
		if len(args) < 3 {
			fmt.Println("Usage: dump postings <field> <term>")
			return
		}
		r.dumpPostings(args[1], args[2])
	case "deletions":
		r.dumpDeletions(args[1])
	default:
		fmt.Printf("Unknown dump type: %s\n", args[0])
	}
}

func (r *REPL) dumpPostings(field, term string) {
	if field == segment.IDField {
		fmt.Printf("Field %s has no postings\n", field)
		return
	}
	postings, err := r.idx.DumpPostings(field, term)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(postings) == 0 {
		fmt.Printf("No postings for %s:%s\n", field, term)
		return
	}
	fmt.Printf("Postings for %s:%s (%d docs):\n", field, term, len(postings))
	for _, p := range postings {
		fmt.Printf("  seg=%s doc=%d tf=%d pos=%v\n", p.SegmentID, p.DocNum, len(p.Positions), p.Positions)
	}
}

func (r *REPL) dumpDeletions(segID string) {
	deleted, err := r.idx.DumpDeletions(segID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(deleted) == 0 {
		fmt.Printf("No deletions in segment %s\n", segID)
		return
	}
	fmt.Printf("Deletions in %s: %v\n", segID, deleted)
}
