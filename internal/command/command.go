// Package command parses the chat commands the agent understands.
package command

import (
	"regexp"
	"strings"
)

// Kind identifies a recognized command.
type Kind int

// Command kinds.
const (
	KindUnknown Kind = iota
	KindStatus
	KindScrape
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindScrape:
		return "scrape"
	case KindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Command is a parsed chat command.
type Command struct {
	Kind   Kind
	Source string // .scrape only
	Target string // .scrape only
}

// patterns are anchored and case-sensitive; they match the whole message.
var (
	statusPattern = regexp.MustCompile(`^\.status$`)
	scrapePattern = regexp.MustCompile(`^\.scrape (\S+) (\S+)$`)
	cancelPattern = regexp.MustCompile(`^\.cancel$`)
)

// Parse matches text against the known commands.
// Unrecognized or malformed text yields KindUnknown.
func Parse(text string) Command {
	switch {
	case statusPattern.MatchString(text):
		return Command{Kind: KindStatus}
	case cancelPattern.MatchString(text):
		return Command{Kind: KindCancel}
	}

	if m := scrapePattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindScrape, Source: m[1], Target: m[2]}
	}
	return Command{Kind: KindUnknown}
}

// LooksLikeScrape reports whether text starts like a .scrape command.
// Used to log malformed invocations that Parse ignores.
func LooksLikeScrape(text string) bool {
	return text == ".scrape" || strings.HasPrefix(text, ".scrape ")
}
