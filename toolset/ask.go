package toolset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmtasker/agent-backends-go/permission"
)

// ConsoleAsk returns an approval callback that prompts on stdin. Anything
// other than y/yes declines.
func ConsoleAsk() permission.AskFunc {
	return ConsoleAskRW(os.Stdin, os.Stderr)
}

// ConsoleAskRW is ConsoleAsk with explicit streams, for embedding and tests.
func ConsoleAskRW(in io.Reader, out io.Writer) permission.AskFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, op permission.Operation, target, reason string) (bool, error) {
		if reason == "" {
			reason = fmt.Sprintf("%s %s", op, target)
		}
		fmt.Fprintf(out, "%s\nAllow? [y/N]: ", reason)

		type answer struct {
			line string
			err  error
		}
		ch := make(chan answer, 1)
		go func() {
			line, err := reader.ReadString('\n')
			ch <- answer{line, err}
		}()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case a := <-ch:
			if a.err != nil && a.line == "" {
				return false, a.err
			}
			switch strings.ToLower(strings.TrimSpace(a.line)) {
			case "y", "yes":
				return true, nil
			default:
				return false, nil
			}
		}
	}
}
