// Package host abstracts the environment the pipeline runs inside. The
// pipeline never prints or prompts directly; it asks the host, so the same
// stages drive a CLI today and an embedded UI later.
package host

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Host is the narrow capability surface the pipeline needs from its
// environment.
type Host interface {
	// RequestInput asks the user a question and returns their answer,
	// or fallback when no answer is given.
	RequestInput(prompt, fallback string) (string, error)

	// PublishResult announces a finished artifact to the user.
	PublishResult(label, path string)

	// ReportProgress reports completion of one pipeline stage step.
	// done counts finished steps out of total.
	ReportProgress(stage string, done, total int)
}

// Console is the terminal host used by the CLI. Progress goes to stderr
// so artifact paths on stdout stay scriptable.
type Console struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	reader *bufio.Reader
	once   sync.Once
}

// NewConsole builds a console host over the given streams.
func NewConsole(in io.Reader, out, errw io.Writer) *Console {
	return &Console{In: in, Out: out, Err: errw}
}

// RequestInput prints the prompt to stderr and reads one line.
func (c *Console) RequestInput(prompt, fallback string) (string, error) {
	c.once.Do(func() { c.reader = bufio.NewReader(c.In) })

	if fallback != "" {
		fmt.Fprintf(c.Err, "%s [%s]: ", prompt, fallback)
	} else {
		fmt.Fprintf(c.Err, "%s: ", prompt)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return fallback, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback, nil
	}
	return line, nil
}

// PublishResult prints the artifact path to stdout.
func (c *Console) PublishResult(label, path string) {
	fmt.Fprintf(c.Out, "%s: %s\n", label, path)
}

// ReportProgress prints a stage progress line to stderr.
func (c *Console) ReportProgress(stage string, done, total int) {
	fmt.Fprintf(c.Err, "[%s] %d/%d\n", stage, done, total)
}

// Mock records every interaction for tests and answers prompts from a
// queue.
type Mock struct {
	mu       sync.Mutex
	Answers  []string
	answerIx int

	Results  []string
	Progress []string
}

// NewMock builds a mock host answering prompts with the given lines.
func NewMock(answers ...string) *Mock {
	return &Mock{Answers: answers}
}

// RequestInput pops the next queued answer, or the fallback when the
// queue is empty.
func (m *Mock) RequestInput(prompt, fallback string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answerIx < len(m.Answers) {
		a := m.Answers[m.answerIx]
		m.answerIx++
		return a, nil
	}
	return fallback, nil
}

// PublishResult records the artifact.
func (m *Mock) PublishResult(label, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, label+"="+path)
}

// ReportProgress records the progress line.
func (m *Mock) ReportProgress(stage string, done, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Progress = append(m.Progress, fmt.Sprintf("%s %d/%d", stage, done, total))
}
