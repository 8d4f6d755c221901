package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/runlog-go/internal/models"
)

func TestDetectFileType(t *testing.T) {
	fitHeader := []byte{14, 0x20, 0, 0, 0, 0, 0, 0, '.', 'F', 'I', 'T', 0, 0}

	tests := []struct {
		name string
		file string
		data []byte
		want FileType
	}{
		{"csv by extension", "a.CSV", nil, FileTypeCSV},
		{"tcx by extension", "a.tcx", nil, FileTypeTCX},
		{"fit by extension", "a.fit", nil, FileTypeFIT},
		{"fit by signature", "export.bin", fitHeader, FileTypeFIT},
		{"tcx by content", "export", []byte(`<?xml version="1.0"?><TrainingCenterDatabase>`), FileTypeTCX},
		{"other xml", "export", []byte(`<?xml version="1.0"?><gpx>`), FileTypeUnknown},
		{"split table by content", "export", []byte("Split,Time\n1,00:01:00"), FileTypeCSV},
		{"plain text", "notes.txt", []byte("hello"), FileTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFileType(tt.file, tt.data))
		})
	}
}

func TestFileTypeKind(t *testing.T) {
	kind, ok := FileTypeTCX.Kind()
	require.True(t, ok)
	assert.Equal(t, models.SourceTCX, kind)

	_, ok = FileTypeUnknown.Kind()
	assert.False(t, ok)
}

func TestNewParser(t *testing.T) {
	opts := DefaultOptions()

	p, err := NewParser(FileTypeCSV, opts)
	require.NoError(t, err)
	assert.IsType(t, &CSVParser{}, p)

	p, ft, err := NewParserFromData("run.tcx", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, FileTypeTCX, ft)
	assert.IsType(t, &TCXParser{}, p)

	_, err = NewParser(FileTypeUnknown, opts)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
