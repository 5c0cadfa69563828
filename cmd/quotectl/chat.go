package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/document"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/fingerprint"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/mock"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/store/memory"
	"github.com/boddenberg/motor-quote-bfa-go/internal/service"
)

const chatHelp = `commands:
  <n>            pick quick reply n
  /state         print the collected answers
  /pay <method>  pay the current quote (paynow, card, grabpay, paylah, nets)
  /pdf <file>    write the policy document once issued
  /quit          leave`

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive quote conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := opts.engine()
			if err != nil {
				return err
			}
			vinCache := cache.New[*domain.VINData](time.Hour)
			defer vinCache.Close()

			svc := service.NewQuoteService(eng, service.QuoteDeps{
				Store:       memory.New(),
				VIN:         mock.NewVINDecoder(),
				Registry:    mock.NewRegistry(),
				Identity:    mock.NewIdentity(),
				Payments:    mock.NewPayments(),
				Renderer:    document.NewRenderer(""),
				Signer:      document.NewSigner("quotectl-local", 24*time.Hour),
				Fingerprint: fingerprint.New("quotectl-local"),
				VINCache:    vinCache,
			}, service.QuoteConfig{}, observability.NewMetrics(), opts.logger)

			r := &repl{svc: svc, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
			return r.run(cmd.Context())
		},
	}
}

// repl is one terminal conversation over a single session.
type repl struct {
	svc  *service.QuoteService
	in   io.Reader
	out  io.Writer
	sess string
	last *domain.Message
}

func (r *repl) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := r.svc.CreateSession(ctx)
	if err != nil {
		return err
	}
	r.sess = sess.ID

	if r.last, err = r.svc.Welcome(ctx, r.sess); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "type /help for commands")
	printMessage(r.out, r.last)

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "\nyou> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			done, err := r.command(ctx, line)
			if err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}
		if err := r.say(ctx, line); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

// say sends free text, or the value of a numbered quick reply.
func (r *repl) say(ctx context.Context, line string) error {
	req := domain.ChatRequest{SessionID: r.sess, Content: line}
	if n, err := strconv.Atoi(line); err == nil && r.last != nil && n >= 1 && n <= len(r.last.QuickReplies) {
		reply := r.last.QuickReplies[n-1]
		req = domain.ChatRequest{SessionID: r.sess, Content: reply.Label, QuickReplyValue: reply.Value}
	}
	res, err := r.svc.SendMessage(ctx, req)
	if err != nil {
		return err
	}
	r.last = res.Message
	printMessage(r.out, r.last)
	return nil
}

func (r *repl) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(r.out, chatHelp)

	case "/state":
		sess, err := r.svc.GetSession(ctx, r.sess)
		if err != nil {
			return false, err
		}
		return false, printJSON(r.out, sess.State)

	case "/pay":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /pay <method>")
		}
		res, err := r.svc.ProcessPayment(ctx, domain.PaymentRequest{SessionID: r.sess, PaymentMethod: fields[1]})
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "%s (ref %s)\n", res.Message, res.PaymentReference)
		if res.Assistant != nil {
			r.last = res.Assistant
			printMessage(r.out, r.last)
		}

	case "/pdf":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /pdf <file>")
		}
		body, doc, err := r.svc.RenderPolicyPDF(ctx, r.sess)
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(fields[1], body, 0o644); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "wrote policy %s to %s\n", doc.PolicyNumber, fields[1])

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}
