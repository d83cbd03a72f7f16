package agent

import (
	"sync"

	"github.com/tagus/gemini-agent/pkg/interfaces"
)

type usageTracker struct {
	totalUsage   interfaces.TokenUsage
	execSummary  interfaces.ExecutionSummary
	primaryModel string
	mu           sync.Mutex
}

func newUsageTracker() *usageTracker {
	return &usageTracker{
		execSummary: interfaces.ExecutionSummary{
			UsedTools: []string{},
		},
	}
}

func (ut *usageTracker) addLLMUsage(usage *interfaces.TokenUsage, model string) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	ut.execSummary.LLMCalls++
	if usage != nil {
		ut.totalUsage.InputTokens += usage.InputTokens
		ut.totalUsage.OutputTokens += usage.OutputTokens
		ut.totalUsage.TotalTokens += usage.TotalTokens
	}
	if ut.primaryModel == "" && model != "" {
		ut.primaryModel = model
	}
}

func (ut *usageTracker) addFunctionCall(name string, failed bool) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	ut.execSummary.FunctionCalls++
	if failed {
		ut.execSummary.FunctionErrors++
	}
	for _, used := range ut.execSummary.UsedTools {
		if used == name {
			return
		}
	}
	ut.execSummary.UsedTools = append(ut.execSummary.UsedTools, name)
}

func (ut *usageTracker) setExecutionTime(timeMs int64) {
	ut.mu.Lock()
	defer ut.mu.Unlock()
	ut.execSummary.ExecutionTimeMs = timeMs
}

func (ut *usageTracker) snapshot() (interfaces.TokenUsage, interfaces.ExecutionSummary, string) {
	ut.mu.Lock()
	defer ut.mu.Unlock()

	summary := ut.execSummary
	summary.UsedTools = append([]string{}, ut.execSummary.UsedTools...)
	return ut.totalUsage, summary, ut.primaryModel
}
