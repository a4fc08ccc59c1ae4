package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shaiso/SmartChainFlow/internal/telemetry"
)

const (
	// StepTypeShell — тип шага shell команды.
	StepTypeShell = "shell"

	defaultShell = "sh"

	// Сколько ждать закрытия pipe после убийства процесса.
	shellWaitDelay = 2 * time.Second
)

// Ключи конфигурации shell шага.
const (
	configCommand = "command"
	configShell   = "shell"
	configDir     = "dir"
	configEnv     = "env"
)

// ShellStep — шаг выполнения shell команды.
//
// Команда запускается через "<shell> -c". При отмене контекста процесс убивается.
// Ненулевой код выхода — ошибка шага, outputs при этом сохраняются.
//
// Конфигурация:
//
//	config:
//	  command: "go test ./... -run {{ .Inputs.pattern }}"
//	  shell: bash          # по умолчанию sh
//	  dir: ./service       # рабочая директория
//	  env:
//	    GOFLAGS: -count=1
//
// Outputs:
//
//	{"stdout": "...", "stderr": "...", "exit_code": 0}
type ShellStep struct {
	// baseEnv — окружение, к которому добавляется config.env.
	baseEnv func() []string
}

// NewShellStep создаёт новый ShellStep.
func NewShellStep() *ShellStep {
	return &ShellStep{
		baseEnv: os.Environ,
	}
}

// Type возвращает тип шага.
func (s *ShellStep) Type() string {
	return StepTypeShell
}

// Execute выполняет команду.
func (s *ShellStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	command := GetConfigString(req.Config, configCommand)
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("%w: %s: command is required", ErrInvalidConfig, StepTypeShell)
	}

	shell := GetConfigString(req.Config, configShell)
	if shell == "" {
		shell = defaultShell
	}

	telemetry.FromContext(ctx).Debug("running shell command",
		"step_id", req.StepID,
		"command", command,
		"attempt", req.Attempt,
	)

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = GetConfigString(req.Config, configDir)
	cmd.WaitDelay = shellWaitDelay

	if env := GetConfigMapString(req.Config, configEnv); len(env) > 0 {
		cmd.Env = s.baseEnv()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	outputs := map[string]any{
		"stdout":    strings.TrimRight(stdout.String(), "\n"),
		"stderr":    strings.TrimRight(stderr.String(), "\n"),
		"exit_code": cmd.ProcessState.ExitCode(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return NewResponse(outputs), fmt.Errorf("%w: %v", ErrStepCancelled, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return NewResponse(outputs), fmt.Errorf("%w: exit code %d: %s",
				ErrCommandFailed, exitErr.ExitCode(), lastLine(stderr.String()))
		}

		return nil, fmt.Errorf("run %s: %w", shell, err)
	}

	return NewResponse(outputs), nil
}

// lastLine возвращает последнюю непустую строку вывода.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
