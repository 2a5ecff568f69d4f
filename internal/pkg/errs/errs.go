package errs

import (
	"errors"
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func New(msg string) error {
	return cr.New(msg)
}

// Mark tags err so that errors.Is(result, markErr) holds, for the standard
// library and cockroachdb alike, while err stays in the chain.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return &marked{error: cr.Mark(err, markErr), mark: markErr}
}

type marked struct {
	error
	mark error
}

func (m *marked) Unwrap() error { return m.error }

func (m *marked) Is(target error) bool { return errors.Is(m.mark, target) }

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
