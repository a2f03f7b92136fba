package agent

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ToolExecutor runs tools with a concurrency limit and timeouts. A
// batch of tool calls from one assistant turn may run concurrently
// through the same executor; the semaphore bounds how many actually
// execute at once.
type ToolExecutor struct {
	semaphore    chan struct{}
	toolTimeout  time.Duration
	queueTimeout time.Duration
}

// NewToolExecutor creates a new tool executor.
func NewToolExecutor(maxConcurrent, toolTimeoutSec, queueTimeoutSec int) *ToolExecutor {
	return &ToolExecutor{
		semaphore:    make(chan struct{}, maxConcurrent),
		toolTimeout:  time.Duration(toolTimeoutSec) * time.Second,
		queueTimeout: time.Duration(queueTimeoutSec) * time.Second,
	}
}

// DefaultExecutor creates an executor with default settings.
func DefaultExecutor() *ToolExecutor {
	return NewToolExecutor(3, 30, 60)
}

// Execute runs a tool with concurrency control and a per-call timeout.
func (e *ToolExecutor) Execute(ctx context.Context, tool Tool, args map[string]any) ([]ContentBlock, error) {
	select {
	case e.semaphore <- struct{}{}:
		defer func() { <-e.semaphore }()

	case <-time.After(e.queueTimeout):
		return nil, fmt.Errorf("tool queue full, timeout after %v", e.queueTimeout)

	case <-ctx.Done():
		return nil, ctx.Err()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.toolTimeout)
	defer cancel()

	resultCh := make(chan toolResult, 1)
	go func() {
		content, err := tool.Execute(timeoutCtx, args)
		resultCh <- toolResult{content, err}
	}()

	select {
	case result := <-resultCh:
		return result.content, result.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tool %q timed out after %v", tool.Name(), e.toolTimeout)
	}
}

type toolResult struct {
	content []ContentBlock
	err     error
}

// ExecutorPool manages executors for different tool names, falling back
// to a shared default.
type ExecutorPool struct {
	mu              sync.RWMutex
	executors       map[string]*ToolExecutor
	defaultExecutor *ToolExecutor
}

// NewExecutorPool creates a new executor pool.
func NewExecutorPool(maxConcurrent, toolTimeoutSec, queueTimeoutSec int) *ExecutorPool {
	return &ExecutorPool{
		executors:       make(map[string]*ToolExecutor),
		defaultExecutor: NewToolExecutor(maxConcurrent, toolTimeoutSec, queueTimeoutSec),
	}
}

// SetExecutor sets a custom executor for a specific tool.
func (p *ExecutorPool) SetExecutor(toolName string, executor *ToolExecutor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors[toolName] = executor
}

// Execute runs a tool using the executor registered for its name.
func (p *ExecutorPool) Execute(ctx context.Context, tool Tool, args map[string]any) ([]ContentBlock, error) {
	p.mu.RLock()
	executor, ok := p.executors[tool.Name()]
	p.mu.RUnlock()

	if !ok {
		executor = p.defaultExecutor
	}
	return executor.Execute(ctx, tool, args)
}
