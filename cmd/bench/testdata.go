package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"harshagw/qryeval/internal/index"
)

const (
	datasetAPI   = "https://datasets-server.huggingface.co/rows?dataset=davidfant/wikipedia-simple&config=default&split=train&offset=%d&length=%d"
	corpusFile   = "testdata/wikipedia.jsonl"
	progressFile = "testdata/progress.csv"

	batchSize  = 100
	maxRetries = 5
)

// errRateLimited marks a 429 from the dataset API.
var errRateLimited = errors.New("rate limited")

type hfResponse struct {
	Rows []struct {
		Row struct {
			ID    int    `json:"id"`
			URL   string `json:"url"`
			Title string `json:"title"`
			Text  string `json:"text"`
		} `json:"row"`
	} `json:"rows"`
}

// downloadProgress is the API offset reached by earlier downloads.
type downloadProgress struct {
	Offset     int
	LastUpdate time.Time
}

// countLines returns the number of documents already in the corpus file.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(strings.TrimSpace(sc.Text())) > 0 {
			n++
		}
	}
	return n, sc.Err()
}

// DownloadCorpus appends Wikipedia articles to the corpus file until it holds
// target documents. It resumes from the recorded API offset.
func DownloadCorpus(benchDir string, target int) error {
	corpusPath := filepath.Join(benchDir, corpusFile)
	progressPath := filepath.Join(benchDir, progressFile)

	have, err := countLines(corpusPath)
	if err != nil {
		return err
	}
	if have >= target {
		fmt.Printf("Already have %d docs (target: %d)\n", have, target)
		return nil
	}

	offset := max(loadProgress(progressPath).Offset, have)
	fmt.Printf("Cached docs: %d, API offset: %d, target: %d\n\n", have, offset, target)

	if err := os.MkdirAll(filepath.Dir(corpusPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(corpusPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	for have < target {
		batch, err := fetchWithRetry(offset, min(batchSize, target-have))
		if err == nil && len(batch) == 0 {
			fmt.Println("  No more data available from API")
			break
		}
		if err == nil {
			for _, doc := range batch {
				if err = enc.Encode(doc); err != nil {
					break
				}
			}
		}
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			saveProgress(progressPath, downloadProgress{Offset: offset, LastUpdate: time.Now()})
			return fmt.Errorf("download stopped at offset %d: %w", offset, err)
		}

		have += len(batch)
		offset += len(batch)
		fmt.Printf("  Downloaded %d/%d (offset: %d)\n", have, target, offset)
		if err := saveProgress(progressPath, downloadProgress{Offset: offset, LastUpdate: time.Now()}); err != nil {
			return err
		}
		time.Sleep(300 * time.Millisecond)
	}

	fmt.Printf("\nDownload complete. Total docs: %d\n", have)
	return nil
}

func fetchWithRetry(offset, length int) ([]map[string]any, error) {
	var err error
	for retry := 0; retry < maxRetries; retry++ {
		var batch []map[string]any
		batch, err = fetchBatch(offset, length)
		if !errors.Is(err, errRateLimited) {
			return batch, err
		}
		wait := time.Duration(2<<retry) * time.Second
		fmt.Printf("  Rate limited, waiting %v (retry %d/%d)...\n", wait, retry+1, maxRetries)
		time.Sleep(wait)
	}
	return nil, err
}

// fetchBatch returns documents in the shape index.ImportJSONL reads.
func fetchBatch(offset, length int) ([]map[string]any, error) {
	resp, err := http.Get(fmt.Sprintf(datasetAPI, offset, length))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, errRateLimited
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var hf hfResponse
	if err := json.NewDecoder(resp.Body).Decode(&hf); err != nil {
		return nil, err
	}

	docs := make([]map[string]any, len(hf.Rows))
	for i, row := range hf.Rows {
		doc := map[string]any{
			index.IDKey: fmt.Sprintf("wiki_%d", row.Row.ID),
			"title":     row.Row.Title,
			"body":      row.Row.Text,
		}
		if row.Row.URL != "" {
			doc["url"] = row.Row.URL
		}
		docs[i] = doc
	}
	return docs, nil
}

func loadProgress(path string) downloadProgress {
	f, err := os.Open(path)
	if err != nil {
		return downloadProgress{}
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil || len(records) < 2 || len(records[1]) < 2 {
		return downloadProgress{}
	}
	offset, _ := strconv.Atoi(records[1][0])
	updated, _ := time.Parse(time.RFC3339, records[1][1])
	return downloadProgress{Offset: offset, LastUpdate: updated}
}

func saveProgress(path string, p downloadProgress) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"offset", "last_update"})
	w.Write([]string{strconv.Itoa(p.Offset), p.LastUpdate.Format(time.RFC3339)})
	w.Flush()
	return w.Error()
}
