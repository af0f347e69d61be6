package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Supervisor spawns a built command and performs the single blocking wait
// for joint termination of the whole worker group.
type Supervisor struct {
	log log.Logger
}

// NewSupervisor creates a supervisor logging through the given logger.
func NewSupervisor(logger log.Logger) *Supervisor {
	if logger == nil {
		logger = log.New()
	}
	return &Supervisor{log: logger}
}

// Run spawns the command with stdout and stderr inherited, so interactive
// debugging of worker output stays possible, and waits for the group to
// terminate. With a positive timeout the wait is bounded; on expiry the
// whole process group is force-killed and a TimeoutError is returned.
// A timeout <= 0 waits indefinitely.
func (s *Supervisor) Run(ctx context.Context, command *Command, timeout time.Duration) error {
	cmd := exec.Command(command.Args[0], command.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = command.Env
	cmd.Dir = command.Dir
	// Workers may spawn their own children (the native front end does);
	// a fresh process group lets the timeout kill all of them at once.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	s.log.Debug("Launching worker group", "command", command.String(), "timeout", timeout)

	if err := cmd.Start(); err != nil {
		return &LaunchError{Stage: "spawn", Err: fmt.Errorf("starting %q: %w", command.Args[0], err)}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err := <-done:
		if err != nil {
			return &LaunchError{Stage: "wait", Err: fmt.Errorf("worker group exited abnormally: %w", err)}
		}
		return nil
	case <-timer:
		s.log.Error("Worker group did not terminate in time, killing process group", "timeout", timeout)
		s.killGroup(cmd)
		<-done
		return &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		s.log.Warn("Run canceled, killing process group", "err", ctx.Err())
		s.killGroup(cmd)
		<-done
		return &LaunchError{Stage: "wait", Err: ctx.Err()}
	}
}

func (s *Supervisor) killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative pid addresses the whole process group.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		s.log.Warn("Failed to kill process group, killing leader only", "err", err)
		_ = cmd.Process.Kill()
	}
}
