// ghadapter runs a snapshot command, exports its JSON result as GitHub Actions
// step outputs and fails the step when the reported percentage is above
// -fail-above.
//
//	ghadapter -fail-above 0.01 -- compare home.cy.js header
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sort"
	"visual-regression/internal/config"
)

func main() {
	var failAbove float64
	flag.Float64Var(&failAbove, "fail-above", config.EnvOrDefault("FAIL_ABOVE", -1.0), "Exit non-zero when percentage exceeds this value, negative to never fail")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		log.Fatalf("command not specified")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		log.Fatalf("Failed to run %s: %v", args[0], err)
	}
	_, _ = os.Stdout.Write(output)

	var result map[string]any
	if err := json.Unmarshal(output, &result); err != nil {
		log.Fatalf("Failed to decode output of %s: %v", args[0], err)
	}

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		if err := writeOutputs(githubOutput, result); err != nil {
			log.Fatalf("Failed to write step outputs: %v", err)
		}
	}

	if percentage, ok := result["percentage"].(float64); ok && failAbove >= 0 && percentage > failAbove {
		log.Fatalf("visual regression: percentage %v exceeds %v", percentage, failAbove)
	}
}

func writeOutputs(path string, result map[string]any) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := result[key]
		// Nested values such as regions are kept as JSON.
		switch value.(type) {
		case []any, map[string]any:
			b, err := json.Marshal(value)
			if err != nil {
				return err
			}
			value = string(b)
		}
		if _, err := fmt.Fprintf(f, "%s=%v\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
