// Package flagx contains helpers for components that parse only their own
// subset of command-line flags out of os.Args.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the allowed flags from args, together with their
// values. Both "-f value" and "-f=value" forms are recognised; a following
// token that starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := allowed[name]; keep {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, keep := allowed[arg]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// Sources holds the locations of optional configuration files named on the
// command line.
type Sources struct {
	JSON    string // -c / -config
	EnvFile string // -env
}

// ConfigSources extracts -c/-config and -env from args (usually os.Args[1:]).
// Missing flags yield empty fields.
func ConfigSources(args []string) Sources {
	var s Sources

	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&s.JSON, "config", "", "path to JSON config file")
	fs.StringVar(&s.JSON, "c", "", "path to JSON config file (short)")
	fs.StringVar(&s.EnvFile, "env", "", "path to .env file")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config", "-env", "--env"}))

	return s
}

// SplitList turns "a, b,,c" into ["a" "b" "c"].
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
