package megapixels

import (
	"os"
	"os/exec"
	"syscall"

	"go.uber.org/zap"
)

// Launcher starts an external program without waiting for it.
type Launcher interface {
	Launch(name string, args ...string) error
}

// ExecLauncher runs programs in their own process group so they outlive a
// terminal UI teardown, and reaps them in the background.
type ExecLauncher struct {
	Logger *zap.Logger
}

func (l *ExecLauncher) Launch(name string, args ...string) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	logger.Debug("launched", zap.String("program", name), zap.Strings("args", args), zap.Int("pid", cmd.Process.Pid))
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("program failed", zap.String("program", name), zap.Error(err))
			return
		}
		logger.Debug("program finished", zap.String("program", name))
	}()
	return nil
}

// PostProcessor receives every finished burst directory together with the
// base path, without extension, the final image should be written to.
type PostProcessor interface {
	PostProcess(dir, target string) error
}

// Script is a PostProcessor that runs an external script as
// "<script> <dir> <target>".
type Script struct {
	Path     string
	Launcher Launcher
}

func (s *Script) PostProcess(dir, target string) error {
	return s.Launcher.Launch(s.Path, dir, target)
}

// OpenURI hands uri to the desktop's default application.
func OpenURI(l Launcher, uri string) error {
	return l.Launch("xdg-open", uri)
}
