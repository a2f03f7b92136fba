package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/junchih/strand/pkg/agent"
)

// terminalApproval prompts for approval decisions on the terminal. A
// mutex serializes prompts when concurrent tool calls propose changes
// at the same time.
type terminalApproval struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newTerminalApproval(in io.Reader, out io.Writer) *terminalApproval {
	return &terminalApproval{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// HandleApproval shows the proposed change and resolves the approval
// from the user's answer.
func (t *terminalApproval) HandleApproval(ctx context.Context, approval *agent.PendingApproval) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\nProposed change to %s:\n%s\n", approval.Path, approval.Diff)

	for {
		fmt.Fprint(t.out, "Apply this change? [y]es / [n]o / [e]dit: ")

		line, err := t.in.ReadString('\n')
		if err != nil {
			approval.Resolve(agent.DecisionReject)
			return
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			approval.Resolve(agent.DecisionApprove)
			return
		case "n", "no":
			approval.Resolve(agent.DecisionReject)
			return
		case "e", "edit":
			approval.Resolve(agent.DecisionEdit)
			return
		}
	}
}
