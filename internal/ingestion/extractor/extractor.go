package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/auralabs/aura-backend/internal/platform/apperr"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

// ErrUnreadableFormat marks a source file that resolved but produced no
// usable text (parser failure or empty extraction).
var ErrUnreadableFormat = errors.New("unreadable document format")

type Extractor struct {
	log *logger.Logger
}

func New(baseLog *logger.Logger) *Extractor {
	return &Extractor{log: baseLog.With("component", "Extractor")}
}

// Extract reads the full text of a stored file. Plain text and markdown
// are read directly; PDFs go through pdftotext, which emits page text in
// page order.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("extract %q: %w", path, apperr.ErrNotFound)
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfToText(ctx, path)
		if err != nil {
			return "", fmt.Errorf("extract %q: %v: %w", path, err, ErrUnreadableFormat)
		}
	default:
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return "", fmt.Errorf("extract %q: %v: %w", path, rerr, ErrUnreadableFormat)
		}
		text = string(raw)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extract %q: no usable text: %w", path, ErrUnreadableFormat)
	}
	return text, nil
}

func pdfToText(ctx context.Context, pdfPath string) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not found in PATH: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "aura_pdftotext_*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outPath := filepath.Join(tmpDir, "out.txt")

	cmd := exec.CommandContext(callCtx, "pdftotext",
		"-enc", "UTF-8",
		"-q",
		pdfPath,
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		s := strings.TrimSpace(stderr.String())
		if s != "" {
			return "", fmt.Errorf("pdftotext: %w; stderr=%s", err, s)
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}

	b, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read pdftotext output: %w", err)
	}
	txt := strings.TrimSpace(string(b))
	if txt == "" {
		return "", fmt.Errorf("pdftotext produced empty output")
	}
	return txt, nil
}
