package parser

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/sstent/runlog-go/internal/models"
)

type FileType string

const (
	FileTypeCSV     FileType = "csv"
	FileTypeTCX     FileType = "tcx"
	FileTypeFIT     FileType = "fit"
	FileTypeUnknown FileType = "unknown"
)

// Kind maps a detected file type onto its source kind.
func (t FileType) Kind() (models.SourceKind, bool) {
	switch t {
	case FileTypeCSV:
		return models.SourceCSV, true
	case FileTypeTCX:
		return models.SourceTCX, true
	case FileTypeFIT:
		return models.SourceFIT, true
	default:
		return "", false
	}
}

// DetectFileType trusts the extension first and falls back to content.
func DetectFileType(name string, data []byte) FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FileTypeCSV
	case ".tcx":
		return FileTypeTCX
	case ".fit":
		return FileTypeFIT
	}
	return DetectFileTypeFromData(data)
}

func DetectFileTypeFromData(data []byte) FileType {
	// FIT header carries ".FIT" at bytes 8..12
	if len(data) >= 12 && bytes.Equal(data[8:12], []byte(".FIT")) {
		return FileTypeFIT
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(head)

	if bytes.HasPrefix(trimmed, []byte("<")) {
		if bytes.Contains(head, []byte("TrainingCenterDatabase")) {
			return FileTypeTCX
		}
		return FileTypeUnknown
	}

	if isSplitHeader(trimmed) {
		return FileTypeCSV
	}

	return FileTypeUnknown
}

func isSplitHeader(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return false
	}
	for _, field := range strings.Split(sc.Text(), ",") {
		if cleanKey(field) == splitKey {
			return true
		}
	}
	return false
}
