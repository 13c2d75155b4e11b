package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrParse = errors.New("invalid command")

type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid command %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Command is one of N, N%, N+, N-, N%+ or N%-.
type Command struct {
	N       int
	Percent bool
	// Sign is 0 for an absolute value, +1 or -1 for an adjustment.
	Sign int
}

func (c Command) Relative() bool {
	return c.Sign != 0
}

func (c Command) String() string {
	s := strconv.Itoa(c.N)
	if c.Percent {
		s += "%"
	}
	switch c.Sign {
	case 1:
		s += "+"
	case -1:
		s += "-"
	}
	return s
}

func Parse(input string) (Command, error) {
	s := strings.TrimSpace(input)
	var cmd Command
	digits := s

	// longest suffix first: %+ and %- before +, - and %
	switch {
	case strings.HasSuffix(s, "%+"), strings.HasSuffix(s, "%-"):
		cmd.Percent = true
		cmd.Sign = signOf(s[len(s)-1])
		digits = s[:len(s)-2]
	case strings.HasSuffix(s, "+"), strings.HasSuffix(s, "-"):
		cmd.Sign = signOf(s[len(s)-1])
		digits = s[:len(s)-1]
	case strings.HasSuffix(s, "%"):
		cmd.Percent = true
		digits = s[:len(s)-1]
	}

	if digits == "" {
		return Command{}, &ParseError{Input: input, Reason: "missing number"}
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Command{}, &ParseError{Input: input, Reason: "expected a non-negative integer optionally followed by %, +, -, %+ or %-"}
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Command{}, &ParseError{Input: input, Reason: "number out of range"}
	}
	cmd.N = n
	return cmd, nil
}

func signOf(c byte) int {
	if c == '-' {
		return -1
	}
	return 1
}
