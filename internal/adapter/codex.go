package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// codexToTape maps codex-cli's response_item transcript shape onto tape
// events. Read/edit coverage is partial: apply_patch gives us file touches
// but no before/after ranges or hashes, so code.edit rows from this adapter
// never carry range or hash fields.
func codexToTape(input string) (string, error) {
	var out []map[string]any
	callTools := map[string]string{}
	var sessionID string
	var firstTimestamp string
	emittedMeta := false

	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return "", fmt.Errorf("decode codex row: %w", err)
		}
		if sessionID == "" {
			sessionID = extractCodexSessionID(row)
		}
		timestamp, _ := row["timestamp"].(string)
		if timestamp == "" {
			timestamp = "1970-01-01T00:00:00Z"
		}
		if firstTimestamp == "" {
			firstTimestamp = timestamp
		}
		rowType, _ := row["type"].(string)

		switch rowType {
		case "session_meta":
			payload, _ := row["payload"].(map[string]any)
			model, _ := payload["model"].(string)
			if model == "" {
				model, _ = payload["model_provider"].(string)
			}
			var repoHead string
			if git, ok := payload["git"].(map[string]any); ok {
				repoHead, _ = git["commit_hash"].(string)
			}
			event := map[string]any{
				"t":             timestamp,
				"k":             "meta",
				"source":        codexSource(sessionID),
				"coverage.tool": "full",
				"coverage.read": "partial",
				"coverage.edit": "partial",
			}
			if model != "" {
				event["model"] = model
			}
			if repoHead != "" {
				event["repo_head"] = repoHead
			}
			out = append(out, event)
			emittedMeta = true

		case "response_item":
			payload, _ := row["payload"].(map[string]any)
			payloadType, _ := payload["type"].(string)
			switch payloadType {
			case "message":
				role, _ := payload["role"].(string)
				if role == "" {
					role = "assistant"
				}
				content := codexContentText(payload["content"])
				if content != "" {
					kind := "msg.in"
					if role == "assistant" {
						kind = "msg.out"
					}
					out = append(out, map[string]any{
						"t":       timestamp,
						"k":       kind,
						"source":  codexSource(sessionID),
						"role":    role,
						"content": content,
					})
				}

			case "function_call":
				tool, _ := payload["name"].(string)
				if tool == "" {
					tool = "unknown"
				}
				callID, _ := payload["call_id"].(string)
				args, _ := payload["arguments"].(string)
				if callID != "" {
					callTools[callID] = tool
				}
				callEvent := map[string]any{
					"t":      timestamp,
					"k":      "tool.call",
					"source": codexSource(sessionID),
					"tool":   tool,
					"args":   args,
				}
				if callID != "" {
					callEvent["call_id"] = callID
				}
				out = append(out, callEvent)

				if tool == "apply_patch" {
					for _, file := range extractApplyPatchFiles(args) {
						out = append(out, map[string]any{
							"t":      timestamp,
							"k":      "code.edit",
							"source": codexSource(sessionID),
							"file":   file,
						})
					}
				}

			case "function_call_output":
				callID, _ := payload["call_id"].(string)
				output, _ := payload["output"].(string)
				tool := "unknown"
				if callID != "" {
					if t, ok := callTools[callID]; ok {
						tool = t
					}
				}
				resultEvent := map[string]any{
					"t":      timestamp,
					"k":      "tool.result",
					"source": codexSource(sessionID),
					"tool":   tool,
					"stdout": output,
					"stderr": "",
				}
				if callID != "" {
					resultEvent["call_id"] = callID
				}
				if exit, ok := extractExitCode(output); ok {
					resultEvent["exit"] = exit
				}
				out = append(out, resultEvent)
			}
		}
	}

	if !emittedMeta {
		if firstTimestamp == "" {
			firstTimestamp = "1970-01-01T00:00:00Z"
		}
		meta := map[string]any{
			"t":             firstTimestamp,
			"k":             "meta",
			"source":        codexSource(sessionID),
			"coverage.tool": "full",
			"coverage.read": "partial",
			"coverage.edit": "partial",
		}
		out = append([]map[string]any{meta}, out...)
	}

	return toJSONL(out)
}

func codexSource(sessionID string) map[string]any {
	if sessionID == "" {
		return map[string]any{"harness": "codex"}
	}
	return map[string]any{"harness": "codex", "session_id": sessionID}
}

func extractCodexSessionID(row map[string]any) string {
	if id, ok := row["session_id"].(string); ok && id != "" {
		return id
	}
	payload, _ := row["payload"].(map[string]any)
	if payload == nil {
		return ""
	}
	if id, ok := payload["session_id"].(string); ok && id != "" {
		return id
	}
	if session, ok := payload["session"].(map[string]any); ok {
		if id, ok := session["id"].(string); ok {
			return id
		}
	}
	return ""
}

func extractExitCode(output string) (int64, bool) {
	const prefix = "Process exited with code "
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			if n, err := strconv.ParseInt(rest, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func extractApplyPatchFiles(arguments string) []string {
	patchBody := arguments
	var decoded map[string]any
	if err := json.Unmarshal([]byte(arguments), &decoded); err == nil {
		if patch, ok := decoded["patch"].(string); ok {
			patchBody = patch
		}
	}

	var files []string
	seen := map[string]bool{}
	for _, line := range strings.Split(patchBody, "\n") {
		var path string
		switch {
		case strings.HasPrefix(line, "*** Update File: "):
			path = strings.TrimPrefix(line, "*** Update File: ")
		case strings.HasPrefix(line, "*** Add File: "):
			path = strings.TrimPrefix(line, "*** Add File: ")
		case strings.HasPrefix(line, "*** Delete File: "):
			path = strings.TrimPrefix(line, "*** Delete File: ")
		default:
			continue
		}
		path = strings.TrimSpace(path)
		if path != "" && !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	return files
}

func codexContentText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		var chunks []string
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"text", "input_text", "output_text"} {
				if text, ok := obj[key].(string); ok {
					chunks = append(chunks, text)
				}
			}
		}
		return strings.Join(chunks, "\n")
	default:
		return ""
	}
}

func toJSONL(events []map[string]any) (string, error) {
	var b strings.Builder
	for _, event := range events {
		encoded, err := json.Marshal(event)
		if err != nil {
			return "", fmt.Errorf("encode tape event: %w", err)
		}
		b.Write(encoded)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
