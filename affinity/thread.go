// File: affinity/thread.go
// Author: momentics <momentics@gmail.com>
//
// ThreadAffinity implements api.Affinity for the sender's single hot-loop
// goroutine: the only binding scope this daemon needs is "pin this one OS
// thread to this one CPU", so NUMA tracking is recorded but not enforced
// separately from the CPU pin.

package affinity

import "github.com/unibo-tsn/ktsnd/api"

// ThreadAffinity pins the calling goroutine's OS thread to a CPU.
type ThreadAffinity struct {
	desc api.AffinityDescriptor
}

// NewThreadAffinity returns an unpinned descriptor for thread scope.
func NewThreadAffinity() *ThreadAffinity {
	return &ThreadAffinity{desc: api.AffinityDescriptor{CPUID: -1, NUMAID: -1, Scope: api.ScopeThread}}
}

// Pin locks the OS thread and sets its CPU affinity mask to cpuID.
func (t *ThreadAffinity) Pin(cpuID, numaID int) error {
	if err := SetAffinity(cpuID); err != nil {
		return err
	}
	t.desc = api.AffinityDescriptor{CPUID: cpuID, NUMAID: numaID, Scope: api.ScopeThread, Pinned: true}
	return nil
}

// Unpin clears the recorded binding. The OS thread itself stays locked;
// Go provides no general unpin-affinity syscall to reverse it.
func (t *ThreadAffinity) Unpin() error {
	t.desc.Pinned = false
	return nil
}

// Get reports the last CPU/NUMA pair passed to Pin.
func (t *ThreadAffinity) Get() (cpuID, numaID int, err error) {
	return t.desc.CPUID, t.desc.NUMAID, nil
}

// Scope reports the fixed thread-level scope this type binds at.
func (t *ThreadAffinity) Scope() api.AffinityScope {
	return api.ScopeThread
}

// ImmutableDescriptor returns a snapshot of the current binding state.
func (t *ThreadAffinity) ImmutableDescriptor() api.AffinityDescriptor {
	return t.desc
}

var _ api.Affinity = (*ThreadAffinity)(nil)
