package jobs

import (
	"errors"
	"fmt"

	"github.com/ignite/mailcheck/internal/domain"
)

// Sentinel errors for the jobs service layer.
var (
	ErrNotFound = errors.New("job not found")
)

// InvalidStateError reports a transition rejected because the job is
// already terminal.
type InvalidStateError struct {
	Status domain.JobStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot cancel job in state %s", e.Status)
}
