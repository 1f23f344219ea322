package analysis

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
)

// ProcessAnalyzer runs the model as a child process:
//
//	<Interpreter> [Script] <imagePath> <outputPath>
//
// The model writes its JSON to outputPath; stdout is the fallback when it
// does not.
type ProcessAnalyzer struct {
	Interpreter string
	Script      string
	WorkDir     string
	Timeout     time.Duration
}

func NewProcessAnalyzer(interpreter, script, workDir string, timeout time.Duration) (*ProcessAnalyzer, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create model work directory %s", workDir)
	}
	return &ProcessAnalyzer{Interpreter: interpreter, Script: script, WorkDir: workDir, Timeout: timeout}, nil
}

func (p *ProcessAnalyzer) Analyze(ctx context.Context, img Image) (*Result, error) {
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	id := uuid.NewString()
	imagePath := filepath.Join(p.WorkDir, "input_"+id+extensionFor(img.ContentType))
	outputPath := filepath.Join(p.WorkDir, "features_"+id+".json")
	if err := os.WriteFile(imagePath, img.Data, 0o600); err != nil {
		return nil, apperr.Internal("Error preparing image for analysis", err)
	}
	defer os.Remove(imagePath)
	defer os.Remove(outputPath)

	var args []string
	if p.Script != "" {
		args = append(args, p.Script)
	}
	args = append(args, imagePath, outputPath)

	cmd := exec.CommandContext(ctx, p.Interpreter, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren that keep the pipes open must not hold Run past the
	// deadline.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if terr := timeoutError(ctx, err); terr != nil {
			return nil, terr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, apperr.External(0, "Model execution failed: "+strings.TrimSpace(stderr.String()), nil, err)
		}
		return nil, apperr.External(0, "Failed to start model process: "+err.Error(), nil, err)
	}

	out, err := os.ReadFile(outputPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && stdout.Len() > 0:
		out = stdout.Bytes()
	case errors.Is(err, os.ErrNotExist):
		return nil, apperr.External(0, "No output from model", nil, nil)
	default:
		return nil, apperr.Internal("Error reading model output", err)
	}
	return Decode(out)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
