package transaction

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/temirov/gx/internal/repos/shared"
)

const transactionIDTemplateConstant = "tx-%d-%d-%d"

// IDGenerator produces unique transaction identifiers.
type IDGenerator interface {
	NextID() string
}

// SequentialIDGenerator combines a clock timestamp, the process id and a counter owned by the generator.
type SequentialIDGenerator struct {
	clock     shared.Clock
	processID int
	counter   atomic.Uint64
}

// NewSequentialIDGenerator constructs a generator; a nil clock uses the system clock.
func NewSequentialIDGenerator(clock shared.Clock) *SequentialIDGenerator {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &SequentialIDGenerator{clock: clock, processID: os.Getpid()}
}

// NextID returns an identifier that is unique for this generator even within one millisecond.
func (generator *SequentialIDGenerator) NextID() string {
	sequence := generator.counter.Add(1)
	return fmt.Sprintf(transactionIDTemplateConstant, generator.clock.Now().UnixMilli(), generator.processID, sequence)
}
