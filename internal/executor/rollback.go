package executor

import "strings"

// rollbackHintFor proposes an undo template when commandLine matches a
// known destructive pattern. Empty string means no hint is offered.
func rollbackHintFor(commandLine string) string {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return ""
	}

	switch fields[0] {
	case "rm":
		if strings.Contains(commandLine, "-rf") || strings.Contains(commandLine, "-fr") {
			return "files removed; restore from version control (git checkout) or a backup if one exists"
		}
		return "files removed; check a backup or your trash/recycle bin if one is configured"
	case "mv":
		return "files moved; the previous location can usually be recovered by moving them back"
	case "git":
		if len(fields) > 1 {
			switch fields[1] {
			case "reset":
				if strings.Contains(commandLine, "--hard") {
					return "history rewritten; recover the prior HEAD with `git reflog` and `git reset --hard <sha>`"
				}
			case "push":
				if strings.Contains(commandLine, "--force") || strings.Contains(commandLine, "-f") {
					return "remote history rewritten; recover with `git reflog` on the remote tip if still reachable"
				}
			case "clean":
				return "untracked files removed; unrecoverable unless backed up separately"
			}
		}
	case "chmod", "chown":
		return "permissions changed; note the prior mode/owner before running if you need to revert"
	case "dd":
		return "raw device write; recovery depends on what was overwritten, often unrecoverable"
	}

	return ""
}
