package log

import "io"

// MultiWriter fans one log line out to every output. A failing output does
// not stop the others; the last error is reported.
type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0, 2)}
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	if writer != nil {
		m.writers = append(m.writers, writer)
	}
	return m
}

// Len returns the number of outputs.
func (m *MultiWriter) Len() int { return len(m.writers) }
