package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/runlog-go/internal/parser"
)

func TestDiscoverGroups(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "20251202", "activity.csv"), splitsCSV)
	writeFile(t, filepath.Join(root, "20251202", "activity.TCX"), traceTCX)
	writeFile(t, filepath.Join(root, "20251202", MetadataFile), `{}`)
	writeFile(t, filepath.Join(root, "20251202", ".DS_Store"), "junk")
	writeFile(t, filepath.Join(root, ".cache", "activity.csv"), splitsCSV)
	writeFile(t, filepath.Join(root, MetadataFile), `{}`)
	writeFile(t, filepath.Join(root, "easy_20251130.fit"), "binary")
	writeFile(t, filepath.Join(root, "easy_20251130.csv"), splitsCSV)

	var report Report
	groups, err := discoverGroups(root, &report)
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)

	require.Len(t, groups, 2)
	folder := groups[0]
	assert.Equal(t, "20251202", folder.key)
	assert.Len(t, folder.files, 2)
	assert.Equal(t, "20251202/activity.TCX", folder.files[parser.FileTypeTCX].name)
	assert.Equal(t, filepath.Join(root, "20251202", MetadataFile), folder.metadataPath)

	loose := groups[1]
	assert.Equal(t, "easy_20251130", loose.key)
	assert.Len(t, loose.files, 2)
	assert.Empty(t, loose.metadataPath)
	assert.Equal(t, "easy_20251130.fit", loose.files[parser.FileTypeFIT].name)
}

func TestSelectDate(t *testing.T) {
	groups := []*activityGroup{
		newGroup("20251201", "a"),
		newGroup("run_2025-12-02", "b"),
		newGroup("misc", "c"),
	}

	assert.Len(t, selectDate(groups, "20251201"), 1)
	selected := selectDate(groups, "20251202")
	require.Len(t, selected, 1)
	assert.Equal(t, "run_2025-12-02", selected[0].key)
	assert.Empty(t, selectDate(groups, "20251203"))
}
