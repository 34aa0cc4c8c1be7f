package signer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadKeyLines reads one private key per line from path, skipping blank
// lines. A missing or empty file is a startup-fatal condition; individual
// malformed keys are not validated here since an invalid key aborts only its
// own account's workflow.
func LoadKeyLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			keys = append(keys, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("key file %s contains no keys", path)
	}
	return keys, nil
}
