// Standalone tool that exports the local embedding model to ONNX format
// for hugot inference.
//
// The Python export script is embedded in the binary so this command
// works when installed via `go install`.
//
// Requires uv (https://docs.astral.sh/uv/) and Python >=3.10.
//
// Usage: download-model <dest>
package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

//go:embed convert-model.py
var script []byte

const modelSubdir = "st-codesearch-distilroberta-base"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: download-model <dest>")
		os.Exit(1)
	}
	dest := os.Args[1]

	// Skip if already exported.
	modelDir := filepath.Join(dest, modelSubdir)
	if _, err := os.Stat(filepath.Join(modelDir, "tokenizer.json")); err == nil {
		if _, err := os.Stat(filepath.Join(modelDir, "onnx", "model.onnx")); err == nil {
			fmt.Printf("Model already present at %s\n", modelDir)
			return
		}
	}

	tmp, err := os.CreateTemp("", "convert-model-*.py")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(script); err != nil {
		fmt.Fprintf(os.Stderr, "write temp file: %v\n", err)
		os.Exit(1)
	}
	if err := tmp.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close temp file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exporting model to %s...\n", dest)

	// Network flakiness during the download is common; retry with backoff.
	delay := 2 * time.Second
	for i := range 4 {
		if i > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}

		cmd := exec.Command("uv", "run", tmp.Name(), dest)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err = cmd.Run(); err == nil {
			break
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "export model: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model ready at %s\n", modelDir)
}
