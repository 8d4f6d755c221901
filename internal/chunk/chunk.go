// Package chunk splits a date-ordered activity list into bounded groups and
// describes them in an index.
package chunk

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sstent/runlog-go/internal/models"
	"github.com/sstent/runlog-go/internal/stats"
)

// Placeholder marks the 1-based chunk number in a file name pattern.
const Placeholder = "{}"

// DefaultPattern names chunk files training_log_part1.json, ...
const DefaultPattern = "training_log_part{}.json"

// SortByDate returns a copy ordered by date; equal dates keep input order.
func SortByDate(activities []models.Activity) []models.Activity {
	sorted := make([]models.Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}

// Partition splits sorted activities into contiguous groups of size n; the
// last group holds the remainder. n <= 0, or n >= len, yields one group.
func Partition(activities []models.Activity, n int) [][]models.Activity {
	if n <= 0 || len(activities) <= n {
		return [][]models.Activity{activities}
	}
	groups := make([][]models.Activity, 0, (len(activities)+n-1)/n)
	for start := 0; start < len(activities); start += n {
		end := start + n
		if end > len(activities) {
			end = len(activities)
		}
		groups = append(groups, activities[start:end])
	}
	return groups
}

// Build sorts, partitions and computes per-chunk statistics. File names are
// filled from pattern when it is non-empty.
func Build(activities []models.Activity, n int, pattern string) []models.Chunk {
	groups := Partition(SortByDate(activities), n)
	chunks := make([]models.Chunk, 0, len(groups))
	for i, group := range groups {
		desc := Describe(group, i+1)
		if pattern != "" {
			desc.File = FileName(pattern, i+1)
		}
		chunks = append(chunks, models.Chunk{Descriptor: desc, Activities: group})
	}
	return chunks
}

// Describe summarizes one chunk with statistics scoped to that chunk only.
func Describe(group []models.Activity, number int) models.ChunkDescriptor {
	return models.ChunkDescriptor{
		ChunkNumber:   number,
		ActivityCount: len(group),
		DateRange:     DateRangeOf(group),
		Statistics:    stats.Compute(group),
	}
}

// DateRangeOf reads the first and last date of a sorted slice.
func DateRangeOf(activities []models.Activity) models.DateRange {
	if len(activities) == 0 {
		return models.DateRange{}
	}
	return models.DateRange{
		FirstActivity: activities[0].Date,
		LastActivity:  activities[len(activities)-1].Date,
	}
}

// BuildIndex makes one descriptor per finished chunk.
func BuildIndex(chunks []models.Chunk, createdAt, runID string) models.Index {
	index := models.Index{
		Metadata: models.IndexMetadata{
			CreatedAt:   createdAt,
			RunID:       runID,
			TotalChunks: len(chunks),
		},
		Chunks: make([]models.ChunkDescriptor, 0, len(chunks)),
	}
	for _, c := range chunks {
		index.Metadata.TotalActivities += c.Descriptor.ActivityCount
		index.Chunks = append(index.Chunks, c.Descriptor)
	}
	return index
}

// FileName substitutes the chunk number into pattern. Patterns without the
// placeholder get the number appended before the extension.
func FileName(pattern string, number int) string {
	n := strconv.Itoa(number)
	if strings.Contains(pattern, Placeholder) {
		return strings.Replace(pattern, Placeholder, n, 1)
	}
	if dot := strings.LastIndex(pattern, "."); dot > 0 {
		return pattern[:dot] + n + pattern[dot:]
	}
	return pattern + n
}
