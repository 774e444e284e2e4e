// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Argument parsing shared by every bqprobe command.
//
// Flags may appear before or after the command name. Boolean flags are
// declared up front so "--json summary" does not swallow the command as
// the flag's value.

package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits raw arguments into flags and positionals.
// Supported forms:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag, --flag=true, --flag=false
//   - Terminator: everything after "--" is positional
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	known      map[string]bool
	raw        []string
}

// NewArgParser parses raw. Names listed in boolNames never take a value
// from the following argument.
//
// Example:
//
//	p := NewArgParser([]string{"--json", "read", "--project-id", "acme"}, "json")
//	p.Subcommand()      // "read"
//	p.Flag("project-id") // "acme"
//	p.BoolFlag("json")   // true
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	p := &ArgParser{
		flags:      make(map[string]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0, len(raw)),
		known:      make(map[string]bool, len(boolNames)),
		raw:        raw,
	}
	for _, name := range boolNames {
		p.known[name] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if p.known[k] || v == "true" || v == "false" {
				if b, err := ParseBoolString(v); err == nil {
					p.boolFlags[k] = b
					continue
				}
			}
			p.flags[k] = v
			continue
		}

		if !p.known[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}

	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the value of a string flag, or "" when absent.
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagOrDefault returns the flag value or defaultValue when it is absent.
func (p *ArgParser) FlagOrDefault(name, defaultValue string) string {
	if val := p.Flag(name); val != "" {
		return val
	}
	return defaultValue
}

// FirstFlag returns the value of the first name that was given, so a long
// flag and its short alias can share one lookup.
func (p *ArgParser) FirstFlag(names ...string) string {
	for _, name := range names {
		if val := p.Flag(name); val != "" {
			return val
		}
	}
	return ""
}

// FlagDuration parses a duration flag. A bare integer is read as seconds.
// ok is false when the flag is absent.
func (p *ArgParser) FlagDuration(name string) (d time.Duration, ok bool, err error) {
	val := p.Flag(name)
	if val == "" {
		return 0, false, nil
	}
	if secs, convErr := strconv.Atoi(val); convErr == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(val); err != nil {
		return 0, true, fmt.Errorf("%s must be a duration like 30s: %w", name, err)
	}
	if d <= 0 {
		return 0, true, fmt.Errorf("%s must be positive, got %s", name, val)
	}
	return d, true, nil
}

// BoolFlag reports whether any of names was set to true.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, name := range names {
		if p.boolFlags[strings.TrimLeft(name, "-")] {
			return true
		}
	}
	return false
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// HasFlag reports whether name was given in either form.
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// Names returns every flag name that was given.
func (p *ArgParser) Names() []string {
	names := make([]string, 0, len(p.flags)+len(p.boolFlags))
	for name := range p.flags {
		names = append(names, name)
	}
	for name := range p.boolFlags {
		names = append(names, name)
	}
	return names
}

// Raw returns the original arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseIntWithValidation parses a positive integer.
func ParseIntWithValidation(s string, fieldName string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", fieldName)
	}

	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", fieldName, err)
	}

	if val <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", fieldName, val)
	}

	return val, nil
}

// ParseBoolString parses true/false, yes/no, y/n, 1/0 and on/off
// (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}
