// Package deps reports whether the external tools shelver shells out to are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"shelver/internal/config"
)

// Requirement names one external binary.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Resolve returns the absolute path of command.
func Resolve(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("command not configured")
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", command)
	}
	return path, nil
}

// CheckBinaries evaluates each requirement.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		path, err := Resolve(status.Command)
		if err != nil {
			status.Detail = err.Error()
		} else {
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// ExtractionRequirements lists the content extraction tools. Both are
// optional: without them PDFs and images are classified by file name only.
func ExtractionRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "pdftotext",
			Command:     cfg.Extraction.PDFToTextBinary,
			Description: "PDF text extraction (poppler-utils)",
			Optional:    true,
		},
		{
			Name:        "tesseract",
			Command:     cfg.Extraction.TesseractBinary,
			Description: "OCR for scanned images",
			Optional:    true,
		},
	}
}
