package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/vovakirdan/streamchat/internal/ipc"
)

// Process is a running worker as seen by the supervisor.
type Process interface {
	Pid() int
	Send(msg ipc.Message) error
	Receive() (ipc.Message, error)
	// Wait blocks until the process exits.
	Wait() error
	// Stop closes the control link; a worker exits when its link goes away.
	Stop() error
	Kill() error
}

// Spawner starts worker processes.
type Spawner interface {
	Spawn() (Process, error)
}

// ExecSpawner re-executes a binary (usually the running one) in worker mode.
// The child receives the control link on ipc.ChildReadFD / ipc.ChildWriteFD.
type ExecSpawner struct {
	Path   string
	Args   []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn starts one worker process.
func (e *ExecSpawner) Spawn() (Process, error) {
	toWorkerR, toWorkerW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("control pipe: %w", err)
	}
	fromWorkerR, fromWorkerW, err := os.Pipe()
	if err != nil {
		toWorkerR.Close()
		toWorkerW.Close()
		return nil, fmt.Errorf("control pipe: %w", err)
	}

	cmd := exec.Command(e.Path, e.Args...)
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	// ExtraFiles[i] becomes fd 3+i in the child.
	cmd.ExtraFiles = []*os.File{toWorkerR, fromWorkerW}

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{toWorkerR, toWorkerW, fromWorkerR, fromWorkerW} {
			f.Close()
		}
		return nil, fmt.Errorf("start worker: %w", err)
	}
	// The child holds its own copies now.
	toWorkerR.Close()
	fromWorkerW.Close()

	return &execProcess{
		cmd:  cmd,
		link: ipc.NewLink(fromWorkerR, toWorkerW),
	}, nil
}

type execProcess struct {
	cmd      *exec.Cmd
	link     *ipc.Link
	stopOnce sync.Once
}

func (p *execProcess) Pid() int                      { return p.cmd.Process.Pid }
func (p *execProcess) Send(msg ipc.Message) error    { return p.link.Send(msg) }
func (p *execProcess) Receive() (ipc.Message, error) { return p.link.Receive() }

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	_ = p.Stop()
	return err
}

func (p *execProcess) Stop() error {
	var err error
	p.stopOnce.Do(func() { err = p.link.Close() })
	return err
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}
