package main

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printMessage renders an assistant turn with numbered quick replies.
func printMessage(w io.Writer, msg *domain.Message) {
	if msg == nil {
		return
	}
	fmt.Fprintf(w, "\nbot> %s\n", msg.Content)
	for _, c := range msg.Cards {
		fmt.Fprintf(w, "     [%s]\n", c.Type)
	}
	for i, r := range msg.QuickReplies {
		fmt.Fprintf(w, "  %2d) %s\n", i+1, r.Label)
	}
	if msg.MultiSelect {
		fmt.Fprintln(w, "     (pick several, then choose Done)")
	}
}

func printBreakdown(w io.Writer, b domain.Breakdown, currency string) {
	for _, item := range b.Items {
		fmt.Fprintf(w, "%-32s %s %10.2f\n", item.Item, currency, item.Amount)
	}
}
