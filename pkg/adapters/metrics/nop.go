// Package metrics holds metrics collectors. The prometheus subpackage is
// the production collector; Nop is used when metrics are disabled.
package metrics

import (
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
)

// Nop discards every measurement
type Nop struct{}

func (Nop) RecordCrewKickoff(string, time.Duration)                                  {}
func (Nop) RecordTaskExecuted(string, string, time.Duration)                         {}
func (Nop) RecordPlanning(string)                                                    {}
func (Nop) RecordLLMCall(string, string, string, time.Duration, domain.TokenUsage) {}
func (Nop) AddActiveRuns(int)                                                        {}
func (Nop) RecordWorkerPoolStatus(int, int)                                          {}
