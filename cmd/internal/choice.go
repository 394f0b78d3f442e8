package internal

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

// ChoiceFlag is a cli.Generic value that must be one of a fixed set of options.
type ChoiceFlag struct {
	opts []string
	curr string
}

var _ cli.Generic = (*ChoiceFlag)(nil)

// NewChoiceFlag creates a choice value defaulting to current,
// values are matched case-insensitively.
func NewChoiceFlag(current string, other ...string) *ChoiceFlag {
	return &ChoiceFlag{opts: append([]string{current}, other...), curr: current}
}

func (f *ChoiceFlag) Set(s string) error {
	for _, o := range f.opts {
		if strings.EqualFold(s, o) {
			f.curr = o
			return nil
		}
	}
	return fmt.Errorf("%q is not valid, valid values: %s", s, strings.Join(f.opts, ", "))
}

func (f *ChoiceFlag) String() string {
	return f.curr
}

// Options returns all accepted values, the default one goes first.
func (f *ChoiceFlag) Options() []string {
	return append([]string(nil), f.opts...)
}

// Usage appends accepted values to the given flag description.
func (f *ChoiceFlag) Usage(desc string) string {
	return desc + " (" + strings.Join(f.opts, "|") + ")"
}
