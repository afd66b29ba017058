package symcc

import (
	"fmt"
	"os"
	"path/filepath"
)

// TestCaseHandler receives the bytes of each generated test case in place of
// the default persistence.
type TestCaseHandler func(data []byte)

// TestCase is a generated program input.
type TestCase struct {
	Index  int
	Suffix string
	Data   []byte
}

// Name returns the file name of the test case: a six digit index, followed
// by "-suffix" when a suffix is set.
func (tc *TestCase) Name() string {
	if tc.Suffix == "" {
		return fmt.Sprintf("%06d", tc.Index)
	}
	return fmt.Sprintf("%06d-%s", tc.Index, tc.Suffix)
}

// TestCaseSink persists generated test cases.
type TestCaseSink interface {
	WriteTestCase(tc *TestCase) error
}

// DirSink writes each test case to a file in a directory.
type DirSink struct {
	Path string
}

// NewDirSink returns a sink writing to path.
func NewDirSink(path string) *DirSink {
	return &DirSink{Path: path}
}

// WriteTestCase writes tc to its own file under the sink directory.
func (s *DirSink) WriteTestCase(tc *TestCase) error {
	if err := os.WriteFile(filepath.Join(s.Path, tc.Name()), tc.Data, 0666); err != nil {
		return fmt.Errorf("write test case: %w", err)
	}
	return nil
}

// MultiSink writes each test case to every sink in order.
// The first error stops the write.
type MultiSink []TestCaseSink

// WriteTestCase writes tc to each sink.
func (a MultiSink) WriteTestCase(tc *TestCase) error {
	for _, s := range a {
		if err := s.WriteTestCase(tc); err != nil {
			return err
		}
	}
	return nil
}
