package watcher

import (
	"fmt"
	"strings"

	"pricewatch/internal/store"
)

const (
	msgWelcome = "Welcome! Send me an Amazon product link and I will watch its price for you.\n\n" +
		"/list - show what I'm tracking\n" +
		"/help - show this message"

	msgFetching       = "Fetching product details, hang on..."
	msgNothingTracked = "You aren't tracking anything yet. Send me a product link to start."
	msgNoPrice        = "I found the product but couldn't read a price for it, so I won't track it."
	msgFetchFailed    = "Sorry, I couldn't fetch that product right now. Please try again later."
	msgNotALink       = "That doesn't look like a product link I recognize. Send me an Amazon link, or /help."
)

func confirmReply(title string, price int64) string {
	return fmt.Sprintf("Now tracking *%s* at %d. I'll tell you when the price drops.", title, price)
}

func listReply(entries []store.Entry) string {
	var b strings.Builder
	b.WriteString("You are tracking:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s - %d\n", i+1, e.Item.Title, e.Item.LastKnownPrice)
	}
	return strings.TrimRight(b.String(), "\n")
}
