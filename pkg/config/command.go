package config

import "strings"

// Command is an argv. In settings it is written either as a list or as a
// single string that is split with shell quoting rules.
type Command []string

// IsEmpty reports whether no command is configured.
func (c Command) IsEmpty() bool {
	return len(c) == 0
}

// Contains reports whether any argument contains token.
func (c Command) Contains(token string) bool {
	for _, arg := range c {
		if strings.Contains(arg, token) {
			return true
		}
	}
	return false
}

// Expand returns a copy of the command with every occurrence of each
// token key replaced by its value.
func (c Command) Expand(tokens map[string]string) []string {
	out := make([]string, len(c))
	for i, arg := range c {
		for token, value := range tokens {
			arg = strings.ReplaceAll(arg, token, value)
		}
		out[i] = arg
	}
	return out
}
