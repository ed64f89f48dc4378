package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spiffcs/linksync/internal/tui"
)

// tuiFlag binds --tui to Options.TUI. Unset (nil) means auto-detect.
type tuiFlag struct {
	target **bool
}

func newTUIFlag(opts *Options) *tuiFlag {
	return &tuiFlag{target: &opts.TUI}
}

func (f *tuiFlag) String() string {
	if *f.target == nil {
		return "auto"
	}
	return strconv.FormatBool(**f.target)
}

// Set accepts any strconv.ParseBool form, "yes"/"no", or "auto".
func (f *tuiFlag) Set(s string) error {
	switch v := strings.ToLower(s); v {
	case "auto":
		*f.target = nil
		return nil
	case "yes", "no":
		b := v == "yes"
		*f.target = &b
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid value %q: use true, false, or auto", s)
	}
	*f.target = &b
	return nil
}

func (f *tuiFlag) Type() string {
	return "bool"
}

// shouldUseTUI reports whether progress is shown in the TUI. Verbose runs
// log to stderr instead.
func shouldUseTUI(opts *Options) bool {
	if opts.Verbosity > 0 {
		return false
	}
	if opts.TUI != nil {
		return *opts.TUI
	}
	return tui.ShouldUseTUI()
}
