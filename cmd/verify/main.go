package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"harshagw/qryeval/internal/analysis"
	"harshagw/qryeval/internal/index"
	"harshagw/qryeval/internal/search"
)

// Document represents a test document with known content.
type Document struct {
	ID     string
	Fields map[string]any
}

// TestCase is a query with the documents it must match, in any order.
type TestCase struct {
	Query    string
	Expected []string
}

// RankCase is a query whose best document is known under a model.
type RankCase struct {
	Model search.Model
	Query string
	Top   string
}

func main() {
	fmt.Println("Query Evaluation Verification")
	fmt.Println("=============================")
	fmt.Println()

	dir, err := os.MkdirTemp("", "verify-*")
	if err != nil {
		fmt.Printf("Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	// Small flush threshold so queries span several segments.
	cfg := index.DefaultConfig(dir)
	cfg.FlushThreshold = 7
	cfg.Analyzer = analysis.NameSimple
	idx, err := index.Open(cfg)
	if err != nil {
		fmt.Printf("Error creating index: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	docs := getTestDocuments()
	for _, doc := range docs {
		if err := idx.Index(doc.ID, doc.Fields); err != nil {
			fmt.Printf("Error indexing doc %s: %v\n", doc.ID, err)
			os.Exit(1)
		}
	}
	if err := idx.Flush(); err != nil {
		fmt.Printf("Error flushing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Indexed %d documents across %d segments\n", len(docs), idx.NumSegments())

	snap, err := idx.Snapshot()
	if err != nil {
		fmt.Printf("Error getting snapshot: %v\n", err)
		os.Exit(1)
	}

	matcher, err := search.New(snap, search.Options{Model: search.NewUnrankedBoolean(), Analyzer: snap.Analyzer()})
	if err != nil {
		fmt.Printf("Error creating searcher: %v\n", err)
		os.Exit(1)
	}

	passed, failed := 0, 0
	tally := func(ok bool) {
		if ok {
			passed++
		} else {
			failed++
		}
	}

	for _, category := range getTestCategories() {
		fmt.Printf("\n%s\n", category.Name)
		fmt.Println(strings.Repeat("-", len(category.Name)))
		for _, tc := range category.Cases {
			tally(runTestCase(snap, matcher, tc))
		}
	}

	fmt.Printf("\nTOP DOCUMENTS\n-------------\n")
	for _, rc := range getRankCases() {
		tally(runRankCase(snap, rc))
	}

	fmt.Println()
	fmt.Println("========================================")
	fmt.Printf("Results: %d passed, %d failed, %d total\n", passed, failed, passed+failed)

	if failed > 0 {
		os.Exit(1)
	}
	fmt.Println("\nAll tests passed!")
}

// externalIDs maps a result list to sorted external ids.
func externalIDs(snap *index.Snapshot, results *search.ScoreList) ([]string, error) {
	ids := make([]string, 0, results.Len())
	for _, d := range results.Docs() {
		ext, err := snap.ExternalID(d.DocID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, ext)
	}
	slices.Sort(ids)
	return ids, nil
}

func runTestCase(snap *index.Snapshot, s *search.Searcher, tc TestCase) bool {
	out, err := s.Search("verify", tc.Query)
	if err == nil {
		var got []string
		got, err = externalIDs(snap, out.Results)
		if err == nil {
			want := slices.Clone(tc.Expected)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				fmt.Printf("  ✗ %s\n", tc.Query)
				fmt.Printf("    Expected: %v\n", want)
				fmt.Printf("    Got:      %v\n", got)
				return false
			}
		}
	}
	if err != nil {
		fmt.Printf("  ✗ %s\n", tc.Query)
		fmt.Printf("    Error: %v\n", err)
		return false
	}

	fmt.Printf("  ✓ %s\n", tc.Query)
	return true
}

func runRankCase(snap *index.Snapshot, rc RankCase) bool {
	label := fmt.Sprintf("[%s] %s", rc.Model.Kind, rc.Query)
	s, err := search.New(snap, search.Options{Model: rc.Model, Analyzer: snap.Analyzer()})
	if err != nil {
		fmt.Printf("  ✗ %s\n    Error: %v\n", label, err)
		return false
	}
	out, err := s.Search("verify", rc.Query)
	if err != nil {
		fmt.Printf("  ✗ %s\n    Error: %v\n", label, err)
		return false
	}
	ranked := out.Results.Clone()
	ranked.Sort()
	if ranked.Len() == 0 {
		fmt.Printf("  ✗ %s\n    No results, expected %s first\n", label, rc.Top)
		return false
	}
	top, err := snap.ExternalID(ranked.At(0).DocID)
	if err != nil || top != rc.Top {
		fmt.Printf("  ✗ %s\n    Expected %s first, got %s (%v)\n", label, rc.Top, top, err)
		return false
	}
	fmt.Printf("  ✓ %s -> %s\n", label, top)
	return true
}

// getTestDocuments returns our deterministic test data set.
func getTestDocuments() []Document {
	return []Document{
		// Doc 1: About programming languages
		{
			ID: "doc1",
			Fields: map[string]any{
				"title":    "Introduction to Go Programming",
				"body":     "Go is a statically typed compiled language designed at Google. It has garbage collection and structural typing.",
				"keywords": "programming language go google",
			},
		},
		// Doc 2: About programming languages (Python)
		{
			ID: "doc2",
			Fields: map[string]any{
				"title":    "Python Programming Guide",
				"body":     "Python is a high-level interpreted language known for its simplicity. It is widely used in data science and machine learning.",
				"keywords": "programming language python data science",
			},
		},
		// Doc 3: About programming languages (Rust)
		{
			ID: "doc3",
			Fields: map[string]any{
				"title":    "Rust Programming Language",
				"body":     "Rust is a systems programming language focused on safety and performance. No garbage collection needed.",
				"keywords": "programming language rust systems safety",
			},
		},
		// Doc 4: About databases (PostgreSQL) - only "database" in body
		{
			ID: "doc4",
			Fields: map[string]any{
				"title":    "PostgreSQL Guide",
				"body":     "PostgreSQL is a powerful open source relational database. It supports advanced features like JSON and full text search.",
				"keywords": "database sql postgresql open source",
			},
		},
		// Doc 5: About databases (Redis) - "database" in title and body, "data" in body
		{
			ID: "doc5",
			Fields: map[string]any{
				"title":    "Redis In-Memory Database",
				"body":     "Redis is an in-memory data structure store used as a database cache and message broker.",
				"keywords": "database redis cache memory nosql",
			},
		},
		// Doc 6: About web development (React) - "development" in title
		{
			ID: "doc6",
			Fields: map[string]any{
				"title":    "Web Development with React",
				"body":     "React is a JavaScript library for building user interfaces. It uses a virtual DOM for performance.",
				"keywords": "web frontend javascript react dom",
			},
		},
		// Doc 7: About web development (backend) - "development" in title+body, "database" in body
		{
			ID: "doc7",
			Fields: map[string]any{
				"title":    "Backend Web Development",
				"body":     "Backend development involves server-side logic and database interactions. Common languages include Python Go and Java.",
				"keywords": "web backend server api",
			},
		},
		// Doc 8: About cloud computing
		{
			ID: "doc8",
			Fields: map[string]any{
				"title":    "Cloud Computing Overview",
				"body":     "Cloud computing provides on-demand computing resources over the internet. Major providers include AWS Azure and Google Cloud.",
				"keywords": "cloud computing aws azure google",
			},
		},
		// Doc 9: About machine learning - "data" in body+tags
		{
			ID: "doc9",
			Fields: map[string]any{
				"title":    "Machine Learning Fundamentals",
				"body":     "Machine learning is a subset of artificial intelligence. It uses algorithms to learn from data and make predictions.",
				"keywords": "machine learning ai data algorithms",
			},
		},
		// Doc 10: About DevOps - "development" in body
		{
			ID: "doc10",
			Fields: map[string]any{
				"title":    "DevOps Best Practices",
				"body":     "DevOps combines development and operations to improve collaboration. Key practices include CI/CD and infrastructure as code.",
				"keywords": "devops cicd infrastructure automation",
			},
		},
		// Doc 11: About Google (for testing repeated terms)
		{
			ID: "doc11",
			Fields: map[string]any{
				"title":    "Google Search Engine",
				"body":     "Google is the most popular search engine. Google was founded in 1998 by Larry Page and Sergey Brin at Google headquarters.",
				"keywords": "google search engine company",
			},
		},
		// Doc 12: About New York (for phrase testing) - phrases like "new york", "united states"
		{
			ID: "doc12",
			Fields: map[string]any{
				"title":    "New York City Guide",
				"body":     "New York City is the largest city in the United States. New York is known for the Statue of Liberty and Central Park.",
				"keywords": "new york city travel usa",
			},
		},
		// Doc 13: About Los Angeles (for phrase testing) - "united states" in body
		{
			ID: "doc13",
			Fields: map[string]any{
				"title":    "Los Angeles Travel Guide",
				"body":     "Los Angeles is a major city in California in the United States. It is known for Hollywood and beautiful beaches.",
				"keywords": "los angeles california travel usa",
			},
		},
		// Doc 14: About United Kingdom (to differentiate from United States)
		{
			ID: "doc14",
			Fields: map[string]any{
				"title":    "United Kingdom Overview",
				"body":     "The United Kingdom consists of England Scotland Wales and Northern Ireland. London is the capital city.",
				"keywords": "united kingdom uk europe london",
			},
		},
		// Doc 15: About football
		{
			ID: "doc15",
			Fields: map[string]any{
				"title":    "Football Rules and History",
				"body":     "Football is the most popular sport in the world. The player kicks the ball into the goal to score points.",
				"keywords": "football sport player team ball",
			},
		},
		// Doc 16: About basketball
		{
			ID: "doc16",
			Fields: map[string]any{
				"title":    "Basketball Game Rules",
				"body":     "Basketball is a team sport where players score by shooting the ball through a hoop. Each team has five players.",
				"keywords": "basketball sport player team ball",
			},
		},
		// Doc 17: About data structures - "data" in title+body+tags, "programming" in tags
		{
			ID: "doc17",
			Fields: map[string]any{
				"title":    "Data Structures Overview",
				"body":     "Data structures organize and store data efficiently. Common structures include arrays lists trees and hash tables.",
				"keywords": "data structures programming algorithms",
			},
		},
		// Doc 18: About algorithms - "programming" in body+tags
		{
			ID: "doc18",
			Fields: map[string]any{
				"title":    "Algorithm Design Patterns",
				"body":     "Algorithm design patterns help solve complex problems. Common patterns include divide and conquer dynamic programming and greedy algorithms.",
				"keywords": "algorithms programming patterns",
			},
		},
		// Doc 19: About testing
		{
			ID: "doc19",
			Fields: map[string]any{
				"title":    "Software Testing Methods",
				"body":     "Software testing ensures code quality. Types include unit testing integration testing and end to end testing.",
				"keywords": "testing software quality assurance",
			},
		},
		// Doc 20: About security
		{
			ID: "doc20",
			Fields: map[string]any{
				"title":    "Cybersecurity Fundamentals",
				"body":     "Cybersecurity protects systems from attacks. Important concepts include encryption authentication and authorization.",
				"keywords": "security cyber encryption protection",
			},
		},
	}
}

type TestCategory struct {
	Name  string
	Cases []TestCase
}

// Unqualified terms match the body field.
func getTestCategories() []TestCategory {
	return []TestCategory{
		{
			Name: "TERMS",
			Cases: []TestCase{
				{"google", []string{"doc1", "doc8", "doc11"}},
				{"database", []string{"doc4", "doc5", "doc7"}},
				{"data", []string{"doc2", "doc5", "doc9", "doc17"}},
				{"programming", []string{"doc3", "doc18"}},
				{"sport", []string{"doc15", "doc16"}},
				{"player", []string{"doc15"}},
				{"nonexistent", []string{}},
			},
		},
		{
			Name: "FIELDS",
			Cases: []TestCase{
				{"programming.title", []string{"doc1", "doc2", "doc3"}},
				{"guide.title", []string{"doc2", "doc4", "doc12", "doc13"}},
				{"database.title", []string{"doc5"}},
				{"sport.keywords", []string{"doc15", "doc16"}},
				{"usa.keywords", []string{"doc12", "doc13"}},
				{"#or( guide.title usa.keywords )", []string{"doc2", "doc4", "doc12", "doc13"}},
			},
		},
		{
			Name: "PROXIMITY",
			Cases: []TestCase{
				{"#near/1( united states )", []string{"doc12", "doc13"}},
				{"#near/1( states united )", []string{}},
				{"#near/1( new york )", []string{"doc12"}},
				{"#near/2( new city )", []string{"doc12"}},
				{"#near/1( machine learning )", []string{"doc2", "doc9"}},
				{"#near/1( united kingdom )", []string{"doc14"}},
				{"#near/1( new.title york.title )", []string{"doc12"}},
				{"#window/2( york new )", []string{"doc12"}},
				{"#window/2( kingdom united )", []string{"doc14"}},
			},
		},
		{
			Name: "SYNONYMS",
			Cases: []TestCase{
				{"#syn( player players )", []string{"doc15", "doc16"}},
				{"#syn( redis postgresql )", []string{"doc4", "doc5"}},
			},
		},
		{
			Name: "AND / OR",
			Cases: []TestCase{
				{"#and( programming language )", []string{"doc3"}},
				{"#and( database open )", []string{"doc4"}},
				{"#and( ball team )", []string{"doc16"}},
				{"#and( football basketball )", []string{}},
				{"#or( football basketball )", []string{"doc15", "doc16"}},
				{"#or( go python rust )", []string{"doc1", "doc2", "doc3", "doc7"}},
				{"football basketball", []string{"doc15", "doc16"}},
			},
		},
		{
			Name: "NESTED",
			Cases: []TestCase{
				{"#and( #or( football basketball ) ball )", []string{"doc15", "doc16"}},
				{"#or( #near/1( new york ) #near/1( los angeles ) )", []string{"doc12", "doc13"}},
				{"#and( #near/1( united states ) california )", []string{"doc13"}},
				{"#and( #syn( player players ) team )", []string{"doc16"}},
			},
		},
	}
}

func getRankCases() []RankCase {
	return []RankCase{
		{search.NewRankedBoolean(), "google", "doc11"},
		{search.NewBM25(1.2, 0.75, 0), "google", "doc11"},
		{search.NewIndri(2500, 0.4), "google", "doc11"},
		{search.NewBM25(1.2, 0.75, 0), "#sum( data structures )", "doc17"},
		{search.NewIndri(2500, 0.4), "#and( data structures )", "doc17"},
		{search.NewIndri(1000, 0.7), "#wand( 0.9 goal 0.1 ball )", "doc15"},
	}
}
