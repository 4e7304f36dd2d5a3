package lookup

import (
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// 上游结果结构约定：data.data.results 为非空对象数组
const resultsSchema = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "object",
      "required": ["data"],
      "properties": {
        "data": {
          "type": "object",
          "required": ["results"],
          "properties": {
            "results": {
              "type": "array",
              "minItems": 1,
              "items": {"type": "object"}
            }
          }
        }
      }
    }
  }
}`

var (
	shapeOnce   sync.Once
	shapeSchema *gojsonschema.Schema
	shapeErr    error
)

func compiledShape() (*gojsonschema.Schema, error) {
	shapeOnce.Do(func() {
		shapeSchema, shapeErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultsSchema))
	})
	return shapeSchema, shapeErr
}

// 文档注释：校验上游响应是否符合结果结构
// 背景：上游为第三方表单接口，结构随时可能变化；不符合时跳过摘要并记录首个不匹配原因，便于排查。
// 返回：ok 为 true 表示可生成摘要；reason 为不匹配描述。
func CheckShape(body []byte) (ok bool, reason string) {
	s, err := compiledShape()
	if err != nil {
		return false, err.Error()
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return false, err.Error()
	}
	if res.Valid() {
		return true, ""
	}
	var msgs []string
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return false, strings.Join(msgs, "; ")
}
