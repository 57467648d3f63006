package roster

import (
	"bytes"
	"encoding/json"
)

// UnwrapShift 把上游响应规范成单个班次对象。
// 上游在不同接口上会返回三种形状：班次数组、{"shift": {...}} 包装对象、裸对象。
// 按固定的优先级顺序尝试：数组取第一个元素，再试包装对象，最后按裸对象处理。
func UnwrapShift(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
			return nil
		}
		return items[0]
	}

	var wrapped struct {
		Shift json.RawMessage `json:"shift"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && len(bytes.TrimSpace(wrapped.Shift)) > 0 {
		return wrapped.Shift
	}

	return trimmed
}

// normalizeConflictPayload 把上游错误载荷中的冲突列表规范化。
// 载荷形状不可靠，解析失败时返回空列表而不是报错。
func normalizeConflictPayload(payload json.RawMessage) []rawConflict {
	var body struct {
		Conflicts []rawConflict `json:"conflicts"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil
	}
	return body.Conflicts
}

type rawConflict struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	DTStart string `json:"dtstart"`
	DTEnd   string `json:"dtend"`
	User    *struct {
		ID int64 `json:"id"`
	} `json:"user"`
}
