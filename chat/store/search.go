package store

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/scylladb/go-set/strset"
)

// BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Search ranks records against a query by title relevance, best match first.
// Terms match as substrings rather than whole tokens, so "auth" scores inside
// "authentication" and punctuation-bearing queries like "c++" work. A blank
// query returns the records unchanged, in their original order.
func Search(query string, records []*Record) []*Record {
	if strings.TrimSpace(query) == "" {
		return records
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return records
	}

	total := len(records)
	if total == 0 {
		return records
	}

	titles := make([]string, total)
	var lengthSum float64
	for i, record := range records {
		titles[i] = strings.ToLower(record.Metadata.Title)
		lengthSum += float64(utf8.RuneCountInString(record.Metadata.Title))
	}
	averageLength := lengthSum / float64(total)
	if averageLength == 0 {
		averageLength = 1
	}

	// Document frequency per unique term.
	documentFrequency := make(map[string]int, len(terms))
	strset.New(terms...).Each(func(term string) bool {
		for _, title := range titles {
			if strings.Contains(title, term) {
				documentFrequency[term]++
			}
		}
		return true
	})

	type scored struct {
		record *Record
		score  float64
	}
	var results []scored
	for i, record := range records {
		fieldLength := float64(utf8.RuneCountInString(record.Metadata.Title))
		var score float64
		for _, term := range terms {
			termFrequency := float64(strings.Count(titles[i], term))
			if termFrequency == 0 {
				continue
			}
			// The +1 keeps a term that appears in every title from zeroing
			// out an otherwise valid match.
			idf := math.Log(float64(total+1)/float64(documentFrequency[term]+1)) + 1
			normalization := 1 - bm25B + bm25B*(fieldLength/averageLength)
			score += idf * (termFrequency * (bm25K1 + 1)) / (termFrequency + bm25K1*normalization)
		}
		if score > 0 {
			results = append(results, scored{record: record, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	ranked := make([]*Record, len(results))
	for i, result := range results {
		ranked[i] = result.record
	}
	return ranked
}
