package repository

import "encoding/json"

// toJSONB 序列化为 JSONB 列的值；nil 结构序列化为 "null"
func toJSONB(v any) ([]byte, error) {
	return json.Marshal(v)
}

// fromJSONB 从 JSONB 列反序列化；空值保持 out 的零值
func fromJSONB(data []byte, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, out)
}
