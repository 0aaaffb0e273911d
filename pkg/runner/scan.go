package runner

import (
	"bufio"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const maxLine = 1024 * 1024

// scanLines reads lines from r and calls fn for each. When enc is set the
// whole stream is decoded before it is split, so multi-byte encodings keep
// their framing. Line terminators are stripped. It returns the first read or
// decode error.
func scanLines(r io.Reader, enc encoding.Encoding, fn func(string)) error {
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}
