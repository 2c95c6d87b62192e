package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// claudeToTape maps claude-code's assistant/user transcript shape onto tape
// events. Coverage is measured, not assumed: read/edit grades in the
// emitted meta row reflect how many Read/Edit/Write/MultiEdit tool calls
// actually carried a resolvable file_path.
func claudeToTape(input string) (string, error) {
	var out []map[string]any
	toolByID := map[string]string{}
	var sessionID string
	var firstTimestamp string

	var readTotal, readEmitted, editTotal, editEmitted int

	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return "", fmt.Errorf("decode claude row: %w", err)
		}
		timestamp, _ := row["timestamp"].(string)
		if timestamp == "" {
			timestamp = "1970-01-01T00:00:00Z"
		}
		if firstTimestamp == "" {
			firstTimestamp = timestamp
		}
		if sessionID == "" {
			sessionID = claudeSessionID(row)
		}
		rowType, _ := row["type"].(string)

		switch rowType {
		case "user":
			message, _ := row["message"].(map[string]any)
			role, _ := message["role"].(string)
			if role == "" {
				role = "user"
			}
			content := message["content"]
			if text, ok := content.(string); ok {
				out = append(out, map[string]any{
					"t":       timestamp,
					"k":       "msg.in",
					"source":  claudeSource(sessionID),
					"role":    role,
					"content": text,
				})
			}
			if blocks, ok := content.([]any); ok {
				for _, b := range blocks {
					block, ok := b.(map[string]any)
					if !ok || block["type"] != "tool_result" {
						continue
					}
					toolUseID, _ := block["tool_use_id"].(string)
					tool := "unknown"
					if toolUseID != "" {
						if t, ok := toolByID[toolUseID]; ok {
							tool = t
						}
					}
					exit := 0
					if isErr, ok := block["is_error"].(bool); ok && isErr {
						exit = 1
					}
					resultEvent := map[string]any{
						"t":      timestamp,
						"k":      "tool.result",
						"source": claudeSource(sessionID),
						"tool":   tool,
						"exit":   exit,
						"stdout": codexContentText(block["content"]),
						"stderr": "",
					}
					if toolUseID != "" {
						resultEvent["call_id"] = toolUseID
					}
					out = append(out, resultEvent)
				}
			}

		case "assistant":
			message, _ := row["message"].(map[string]any)
			role, _ := message["role"].(string)
			if role == "" {
				role = "assistant"
			}
			blocks, _ := message["content"].([]any)
			for _, b := range blocks {
				block, ok := b.(map[string]any)
				if !ok {
					continue
				}
				blockType, _ := block["type"].(string)
				switch blockType {
				case "text":
					text, _ := block["text"].(string)
					if text != "" {
						out = append(out, map[string]any{
							"t":       timestamp,
							"k":       "msg.out",
							"source":  claudeSource(sessionID),
							"role":    role,
							"content": text,
						})
					}

				case "tool_use":
					tool, _ := block["name"].(string)
					if tool == "" {
						tool = "unknown"
					}
					toolInput, _ := block["input"].(map[string]any)
					toolUseID, _ := block["id"].(string)
					if toolUseID != "" {
						toolByID[toolUseID] = tool
					}
					argsEncoded, err := json.Marshal(toolInput)
					if err != nil {
						argsEncoded = []byte("{}")
					}
					callEvent := map[string]any{
						"t":      timestamp,
						"k":      "tool.call",
						"source": claudeSource(sessionID),
						"tool":   tool,
						"args":   string(argsEncoded),
					}
					if toolUseID != "" {
						callEvent["call_id"] = toolUseID
					}
					out = append(out, callEvent)

					switch tool {
					case "Read":
						readTotal++
						if file, _ := toolInput["file_path"].(string); file != "" {
							start := uint32(1)
							if offset, ok := asUint(toolInput["offset"]); ok && offset > start {
								start = offset
							}
							end := start
							if limit, ok := asUint(toolInput["limit"]); ok && limit > 0 {
								end = start + limit - 1
							}
							out = append(out, map[string]any{
								"t":           timestamp,
								"k":           "code.read",
								"source":      claudeSource(sessionID),
								"file":        file,
								"range":       []uint32{start, end},
								"range_basis": "line",
							})
							readEmitted++
						}

					case "Edit":
						editTotal++
						if file, _ := toolInput["file_path"].(string); file != "" {
							edit := map[string]any{
								"t":      timestamp,
								"k":      "code.edit",
								"source": claudeSource(sessionID),
								"file":   file,
							}
							if old, ok := toolInput["old_string"].(string); ok {
								edit["before_hash"] = hashText(old)
							}
							if neu, ok := toolInput["new_string"].(string); ok {
								edit["after_hash"] = hashText(neu)
							}
							out = append(out, edit)
							editEmitted++
						}

					case "Write":
						editTotal++
						if file, _ := toolInput["file_path"].(string); file != "" {
							edit := map[string]any{
								"t":      timestamp,
								"k":      "code.edit",
								"source": claudeSource(sessionID),
								"file":   file,
							}
							if content, ok := toolInput["content"].(string); ok {
								edit["after_hash"] = hashText(content)
							}
							out = append(out, edit)
							editEmitted++
						}

					case "MultiEdit":
						file, _ := toolInput["file_path"].(string)
						edits, _ := toolInput["edits"].([]any)
						if file == "" {
							editTotal++
							continue
						}
						editTotal += len(edits)
						for _, e := range edits {
							edit, ok := e.(map[string]any)
							if !ok {
								continue
							}
							row := map[string]any{
								"t":      timestamp,
								"k":      "code.edit",
								"source": claudeSource(sessionID),
								"file":   file,
							}
							if old, ok := edit["old_string"].(string); ok {
								row["before_hash"] = hashText(old)
							}
							if neu, ok := edit["new_string"].(string); ok {
								row["after_hash"] = hashText(neu)
							}
							out = append(out, row)
							editEmitted++
						}
					}
				}
			}
		}
	}

	if firstTimestamp == "" {
		firstTimestamp = "1970-01-01T00:00:00Z"
	}
	meta := map[string]any{
		"t":             firstTimestamp,
		"k":             "meta",
		"source":        claudeSource(sessionID),
		"coverage.read": coverageGrade(readTotal, readEmitted),
		"coverage.edit": coverageGrade(editTotal, editEmitted),
		"coverage.tool": "full",
	}
	out = append([]map[string]any{meta}, out...)

	return toJSONL(out)
}

func claudeSource(sessionID string) map[string]any {
	if sessionID == "" {
		return map[string]any{"harness": "claude"}
	}
	return map[string]any{"harness": "claude", "session_id": sessionID}
}

func claudeSessionID(row map[string]any) string {
	if id, ok := row["session_id"].(string); ok && id != "" {
		return id
	}
	if id, ok := row["sessionId"].(string); ok {
		return id
	}
	return ""
}

// coverageGrade reports full coverage when no structured events of a kind
// were observed at all: vacuous truth, not an assumption of fidelity.
func coverageGrade(total, emitted int) string {
	if total == 0 || emitted == total {
		return "full"
	}
	return "partial"
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func asUint(v any) (uint32, bool) {
	switch n := v.(type) {
	case float64:
		return uint32(n), true
	case int:
		return uint32(n), true
	default:
		return 0, false
	}
}
