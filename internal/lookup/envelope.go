package lookup

import (
	"encoding/json"
	"time"
)

// NotAvailable：上游缺失字段时的占位值
const NotAvailable = "N/A"

// TimestampLayout：响应中的时间格式（本地时区，微秒精度）
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type RequestInfo struct {
	YourQuery  string    `json:"your_query"`
	QueryType  QueryType `json:"query_type"`
	Timestamp  string    `json:"timestamp"`
	StatusCode int       `json:"status_code"`
}

// 文档注释：扁平化后的单条结果
// 背景：字段值类型由上游决定（字符串、数组或数字都见过），因此保持 any 原样透传。
// 约束：键缺失时填 NotAvailable；键存在但为 null 时保留 null。
type ResultRecord struct {
	ResultID         int `json:"result_id"`
	MobileNumber     any `json:"mobile_number"`
	Name             any `json:"name"`
	FatherName       any `json:"father_name"`
	CNIC             any `json:"cnic"`
	Address          any `json:"address"`
	Network          any `json:"network"`
	RegistrationDate any `json:"registration_date"`
	FamilyMembers    any `json:"family_members"`
	OtherNumbers     any `json:"other_numbers"`
}

type Summary struct {
	TotalResults int            `json:"total_results"`
	Results      []ResultRecord `json:"results"`
}

// Envelope：/search 成功响应
type Envelope struct {
	RequestInfo RequestInfo     `json:"request_info"`
	APIResponse json.RawMessage `json:"api_response"`
	Summary     *Summary        `json:"summary,omitempty"`
}

// FormatTimestamp：统一时间输出
func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }

func field(item map[string]any, key string) any {
	v, ok := item[key]
	if !ok {
		return NotAvailable
	}
	return v
}

// 文档注释：从上游结果项构造扁平记录
// 约束：idx 从 1 开始；上游手机号字段名为 "n"。
func newResultRecord(idx int, item map[string]any) ResultRecord {
	return ResultRecord{
		ResultID:         idx,
		MobileNumber:     field(item, "n"),
		Name:             field(item, "name"),
		FatherName:       field(item, "father_name"),
		CNIC:             field(item, "cnic"),
		Address:          field(item, "address"),
		Network:          field(item, "network"),
		RegistrationDate: field(item, "registration_date"),
		FamilyMembers:    field(item, "family_members"),
		OtherNumbers:     field(item, "other_numbers"),
	}
}

// 文档注释：按上游约定的 data.data.results[] 生成摘要
// 背景：上游结构未公开且可能变化；只有 success 为真且 results 为非空对象数组时才生成。
// 返回：不满足结构时返回 nil，原始响应仍完整透传。
func Summarize(doc any) *Summary {
	root, ok := doc.(map[string]any)
	if !ok || !truthy(root["success"]) {
		return nil
	}
	outer, _ := root["data"].(map[string]any)
	inner, _ := outer["data"].(map[string]any)
	items, _ := inner["results"].([]any)
	if len(items) == 0 {
		return nil
	}
	out := &Summary{TotalResults: len(items), Results: make([]ResultRecord, 0, len(items))}
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil
		}
		out.Results = append(out.Results, newResultRecord(i+1, m))
	}
	return out
}

// truthy：按 JSON 值的“非空”语义判断 success 字段
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}
