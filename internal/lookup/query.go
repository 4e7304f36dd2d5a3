// 包 lookup：号码/身份证查询的核心逻辑（输入清洗、分类、结果重组），不依赖 HTTP 层
package lookup

import (
	"strings"
)

// QueryType：查询类型
type QueryType string

const (
	QueryMobile QueryType = "mobile"
	QueryCNIC   QueryType = "cnic"
)

// MinDigits：清洗后允许的最少位数
const MinDigits = 10

// Query：清洗并分类后的查询
type Query struct {
	Digits string
	Type   QueryType
}

// 文档注释：清洗查询字符串
// 背景：用户常输入带空格、短横线或 +92 前缀的号码；只保留数字再交给上游。
// 约束：阿拉伯-印度数字（U+0660–0669）与乌尔都数字（U+06F0–06F9）折算为 ASCII；其他字符全部丢弃。
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		}
	}
	return b.String()
}

// Classify：10/11 位视为手机号，其余（≥12 位）视为 CNIC
func Classify(digits string) QueryType {
	switch len(digits) {
	case 10, 11:
		return QueryMobile
	}
	return QueryCNIC
}

// 文档注释：校验并构造查询
// 返回：空串或不足 MinDigits 位时返回 KindValidation 错误，错误内携带清洗结果与长度供响应使用。
func ParseQuery(raw string) (Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, &Error{Kind: KindValidation, Message: MsgQueryRequired}
	}
	d := Clean(raw)
	if len(d) < MinDigits {
		return Query{}, &Error{Kind: KindValidation, Message: MsgInvalidLength, Query: d, Length: len(d), withLength: true}
	}
	return Query{Digits: d, Type: Classify(d)}, nil
}

// Mask：统计落库前脱敏，仅保留末 4 位
func Mask(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
