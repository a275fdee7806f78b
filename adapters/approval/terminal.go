package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// TerminalApprover prompts on the daemon's terminal for connection and
// signing decisions. It stands in for the wallet's approval UI when
// running headless.
type TerminalApprover struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalApprover creates an approver over stdin/stderr.
func NewTerminalApprover() *TerminalApprover {
	return &TerminalApprover{in: bufio.NewReader(os.Stdin), out: os.Stderr}
}

var _ ports.Approver = (*TerminalApprover)(nil)

// ApproveConnection asks whether to connect the origin and returns the
// account address on approval.
func (a *TerminalApprover) ApproveConnection(ctx context.Context, origin, address string) (string, error) {
	prompt := fmt.Sprintf("Connect %s as %s? [y/N] ", origin, address)
	ok, err := a.ask(ctx, prompt)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", core.ErrUserRejected
	}
	return address, nil
}

// ApproveSigning asks whether to confirm a signing request.
func (a *TerminalApprover) ApproveSigning(ctx context.Context, summary ports.SigningSummary) error {
	prompt := fmt.Sprintf("%s requests %s (%s)", summary.Origin, summary.Method, summary.Preview)
	if !summary.ValueEther.IsZero() {
		prompt += fmt.Sprintf(" sending %s ETH", summary.ValueEther.String())
	}
	ok, err := a.ask(ctx, prompt+". Approve? [y/N] ")
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUserRejected
	}
	return nil
}

func (a *TerminalApprover) ask(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprint(a.out, prompt)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := a.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ans := <-ch:
		if ans.err != nil {
			return false, nil
		}
		reply := strings.ToLower(strings.TrimSpace(ans.line))
		return reply == "y" || reply == "yes", nil
	}
}
