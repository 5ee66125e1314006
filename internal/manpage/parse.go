// Package manpage builds and maintains an offline, per-platform index of
// common shell tools and their flags, for the safety validator and the
// prompt template store to consult without shelling out at request time.
package manpage

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os/exec"
	"regexp"
	"strings"

	"github.com/wildcard/caro/internal/model"
)

// CommonTools is the default enumeration built on first run for a
// platform.
var CommonTools = []string{
	"ls", "find", "grep", "du", "df", "sort", "head", "tail", "cat", "cut",
	"awk", "sed", "xargs", "tar", "gzip", "rm", "mv", "cp", "chmod", "chown",
	"kill", "ps", "lsof", "ssh", "dd",
}

var flagPattern = regexp.MustCompile(`(?:^|[\s,\[(])(-{1,2}[A-Za-z][A-Za-z0-9-]*)`)

// forbiddenByTool lists flags each tool should be flagged for regardless
// of whether the platform's man page documents them, following the
// validator's risk taxonomy (e.g. "no filesystem boundary" flags).
var forbiddenByTool = map[string][]string{
	"rm":    {"--no-preserve-root"},
	"chmod": {"--no-preserve-root"},
	"chown": {"--no-preserve-root"},
	"dd":    {"conv=noerror,sync"},
}

// parseTool shells out to `man <tool>` (falling back to `<tool> --help`)
// and extracts the set of documented flags. Parsing never fails hard: an
// unparsable or missing man page yields an empty-but-valid ToolInfo so the
// cache always has an entry once asked.
func parseTool(ctx context.Context, tool string) model.ToolInfo {
	raw, path := readManOrHelp(ctx, tool)

	supported := map[string]struct{}{}
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		for _, m := range flagPattern.FindAllStringSubmatch(scanner.Text(), -1) {
			supported[m[1]] = struct{}{}
		}
	}

	forbidden := map[string]struct{}{}
	for _, f := range forbiddenByTool[tool] {
		forbidden[f] = struct{}{}
	}

	sum := sha256.Sum256([]byte(raw))
	return model.ToolInfo{
		Name:           tool,
		Path:           path,
		SupportedFlags: supported,
		ForbiddenFlags: forbidden,
		ContentHash:    hex.EncodeToString(sum[:]),
	}
}

func readManOrHelp(ctx context.Context, tool string) (text string, path string) {
	if out, err := exec.CommandContext(ctx, "man", tool).Output(); err == nil && len(out) > 0 {
		if p, lookErr := exec.LookPath(tool); lookErr == nil {
			path = p
		}
		return string(out), path
	}
	if out, err := exec.CommandContext(ctx, tool, "--help").Output(); err == nil {
		if p, lookErr := exec.LookPath(tool); lookErr == nil {
			path = p
		}
		return string(out), path
	}
	return "", ""
}
