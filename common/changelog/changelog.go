// Package changelog prints before/after snapshots of edited configuration sections.
package changelog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
)

// Special output targets accepted by Open.
const (
	Stdout = "stdout"
	Stderr = "stderr"
	None   = "none"
)

// Change is the state of one configuration section before and after an edit.
type Change struct {
	Section string
	Before  interface{}
	After   interface{}
}

// Log writes changes in a human readable form. A Log with no writer only emits
// debug log entries.
type Log struct {
	out io.Writer
}

// New returns a Log writing to out.
func New(out io.Writer) *Log {
	return &Log{out: out}
}

// Open resolves target to a Log: stdout, stderr, none, or a file path that is
// truncated. The returned close function must be called once recording is done.
func Open(target string) (*Log, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(target) {
	case "", Stdout:
		return New(os.Stdout), noop, nil
	case Stderr:
		return New(os.Stderr), noop, nil
	case None:
		return &Log{}, noop, nil
	}

	f, err := os.Create(target)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open changelog %s", target)
	}
	return New(f), f.Close, nil
}

// Record writes every change in order.
func (l *Log) Record(changes ...Change) error {
	for _, c := range changes {
		diff := pretty.Diff(c.Before, c.After)
		logger.Infof("Updating %s (%d differences)", c.Section, len(diff))
		if l == nil || l.out == nil {
			logger.Debugf("%s: %v", c.Section, diff)
			continue
		}
		if err := l.write(c, diff); err != nil {
			return errors.Wrapf(err, "failed to record change of %s", c.Section)
		}
	}
	return nil
}

func (l *Log) write(c Change, diff []string) error {
	before, err := render(c.Before)
	if err != nil {
		return err
	}
	after, err := render(c.After)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Updating %s:\n", c.Section)
	b.WriteString(before + "\n")
	b.WriteString(strings.Repeat(">", 25) + "\n")
	b.WriteString(after + "\n")
	if len(diff) > 0 {
		b.WriteString(strings.Repeat("-", 25) + "\n")
		for _, d := range diff {
			fmt.Fprintf(&b, "  %s\n", d)
		}
	}
	b.WriteString(strings.Repeat("=", 50) + "\n")

	_, err = io.WriteString(l.out, b.String())
	return err
}

func render(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to render snapshot")
	}
	return string(data), nil
}
