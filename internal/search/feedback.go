package search

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/RoaringBitmap/roaring"
	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/query"
)

// Feedback configures pseudo-relevance-feedback expansion.
type Feedback struct {
	Docs       int
	Terms      int
	Mu         float64
	OrigWeight float64
	// Field is the field whose term vectors are mined.
	Field string
}

// DefaultFeedback returns the settings used when only fb=true is given.
func DefaultFeedback() Feedback {
	return Feedback{Docs: 10, Terms: 10, Mu: 0, OrigWeight: 0.5, Field: query.DefaultField}
}

func (fb Feedback) Validate() error {
	switch {
	case fb.Docs <= 0:
		return errs.Configf("fbDocs must be positive, got %d", fb.Docs)
	case fb.Terms <= 0:
		return errs.Configf("fbTerms must be positive, got %d", fb.Terms)
	case fb.Mu < 0:
		return errs.Configf("fbMu must be non-negative, got %g", fb.Mu)
	case fb.OrigWeight < 0 || fb.OrigWeight > 1:
		return errs.Configf("fbOrigWeight must be in [0, 1], got %g", fb.OrigWeight)
	}
	return nil
}

// ExpansionTerm is a candidate term and its accumulated importance.
type ExpansionTerm struct {
	Term  string
	Score float64
}

// Expander mines expansion terms from the top of a ranking.
type Expander struct {
	idx Index
	fb  Feedback
}

func NewExpander(idx Index, fb Feedback) *Expander {
	if fb.Field == "" {
		fb.Field = query.DefaultField
	}
	return &Expander{idx: idx, fb: fb}
}

// feedbackDoc is one of the top documents.
type feedbackDoc struct {
	score  float64
	length float64
}

// candidate accumulates a term's score and the top documents containing it.
type candidate struct {
	ple   float64
	score float64
	seen  *roaring.Bitmap
}

// Terms sorts ranking and returns the top expansion terms, best first.
func (e *Expander) Terms(ranking *ScoreList) ([]ExpansionTerm, error) {
	ranking.Sort()
	n := min(e.fb.Docs, ranking.Len())
	collectionLen := float64(e.idx.SumOfFieldLengths(e.fb.Field))

	docs := make([]feedbackDoc, n)
	candidates := make(map[string]*candidate)

	for i := 0; i < n; i++ {
		sd := ranking.At(i)
		tv, err := e.idx.TermVector(sd.DocID, e.fb.Field)
		if err != nil {
			return nil, fmt.Errorf("term vector for doc %d: %w", sd.DocID, err)
		}
		docs[i] = feedbackDoc{
			score:  sd.Score,
			length: float64(e.idx.FieldLength(e.fb.Field, sd.DocID)),
		}

		for _, ts := range tv.Terms {
			if hasPunctuation(ts.Stem) || ts.CTF == 0 || collectionLen == 0 {
				continue
			}
			c, ok := candidates[ts.Stem]
			if !ok {
				c = &candidate{ple: float64(ts.CTF) / collectionLen, seen: roaring.New()}
				candidates[ts.Stem] = c
			}
			c.seen.Add(uint32(i))
			c.score += e.contribution(float64(ts.TF), c.ple, docs[i])
		}
	}

	terms := make([]ExpansionTerm, 0, len(candidates))
	for term, c := range candidates {
		absent := roaring.Flip(c.seen, 0, uint64(n))
		it := absent.Iterator()
		for it.HasNext() {
			c.score += e.contribution(0, c.ple, docs[it.Next()])
		}
		terms = append(terms, ExpansionTerm{Term: term, Score: c.score})
	}

	slices.SortFunc(terms, func(a, b ExpansionTerm) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.Term, b.Term)
	})
	if len(terms) > e.fb.Terms {
		terms = terms[:e.fb.Terms]
	}
	log.Debugf("feedback over %d docs chose %d of %d candidate terms", n, len(terms), len(candidates))
	return terms, nil
}

// contribution is one document's evidence for a term with collection probability ple.
func (e *Expander) contribution(tf, ple float64, d feedbackDoc) float64 {
	if d.length+e.fb.Mu == 0 {
		return 0
	}
	ptd := (tf + e.fb.Mu*ple) / (d.length + e.fb.Mu)
	return ptd * d.score * math.Log(1/ple)
}

// Expand returns the expansion query fragment for ranking.
func (e *Expander) Expand(ranking *ScoreList) (string, error) {
	terms, err := e.Terms(ranking)
	if err != nil {
		return "", err
	}
	return ExpansionQuery(terms), nil
}

// ExpansionQuery renders terms as a #wsum fragment with 4-digit weights.
func ExpansionQuery(terms []ExpansionTerm) string {
	var sb strings.Builder
	sb.WriteString("#wsum (")
	for _, t := range terms {
		fmt.Fprintf(&sb, " %.4f %s", t.Score, t.Term)
	}
	sb.WriteString(" )")
	return sb.String()
}

// CombinedQuery weights the original query, wrapped in defaultOp, against the expansion.
func CombinedQuery(original string, defaultOp query.Kind, origWeight float64, expansion string) string {
	return "#wand ( " + strconv.FormatFloat(origWeight, 'g', -1, 64) + " " +
		defaultOp.String() + "( " + original + " ) " +
		strconv.FormatFloat(1-origWeight, 'g', -1, 64) + " " + expansion + " )"
}

func hasPunctuation(term string) bool {
	return strings.ContainsFunc(term, unicode.IsPunct)
}
