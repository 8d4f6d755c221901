package parser

import "fmt"

// NewParser returns the parser for a detected file type.
func NewParser(fileType FileType, opts Options) (Parser, error) {
	switch fileType {
	case FileTypeCSV:
		return NewCSVParser(), nil
	case FileTypeTCX:
		return NewTCXParser(opts.MaxTrackpoints), nil
	case FileTypeFIT:
		return NewFITParser(opts.DecodeFIT, opts.MaxTrackpoints), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

// NewParserFromData detects the file type by extension, then by content.
func NewParserFromData(name string, data []byte, opts Options) (Parser, FileType, error) {
	fileType := DetectFileType(name, data)
	p, err := NewParser(fileType, opts)
	if err != nil {
		return nil, fileType, err
	}
	return p, fileType, nil
}
