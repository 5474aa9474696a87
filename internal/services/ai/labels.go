package ai

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// LoadLabels reads a class names file: line N names class N. Blank lines keep
// their index so ids stay aligned with the model.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open labels file %s", path)
	}
	defer f.Close()
	return parseLabels(f)
}

func parseLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read labels")
	}
	return labels, nil
}

// classLabel names a class id, falling back to "class_<id>" for ids the labels
// file does not cover.
func classLabel(labels []string, classID int) string {
	if classID >= 0 && classID < len(labels) && labels[classID] != "" {
		return labels[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}
