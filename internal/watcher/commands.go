package watcher

import "strings"

// CommandKind is the closed set of things a message can mean. Classification
// happens in one place so handling can match exhaustively.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdListTracked
	CmdTrackRequest
	CmdUnrecognized
)

type Command struct {
	Kind CommandKind
	URL  string // populated for CmdTrackRequest
}

// Domain markers that make a message a tracking request.
var productDomainMarkers = []string{"amazon.", "amzn.", "a.co/"}

// Classify maps message text onto the command set. First match wins:
// exact command matches, then the product-domain scan, then Unrecognized.
func Classify(text string) Command {
	t := strings.TrimSpace(text)
	switch t {
	case "/start", "/help":
		return Command{Kind: CmdStart}
	case "/list":
		return Command{Kind: CmdListTracked}
	}
	for _, marker := range productDomainMarkers {
		if strings.Contains(t, marker) {
			return Command{Kind: CmdTrackRequest, URL: extractProductURL(t)}
		}
	}
	return Command{Kind: CmdUnrecognized}
}

// extractProductURL returns the first whitespace-separated token carrying a
// product-domain marker, so "check this https://amazon.com/dp/X please"
// still tracks cleanly.
func extractProductURL(text string) string {
	for _, tok := range strings.Fields(text) {
		for _, marker := range productDomainMarkers {
			if strings.Contains(tok, marker) {
				return tok
			}
		}
	}
	return strings.TrimSpace(text)
}
