package formcollect

import "github.com/tbxark/formcollect/types"

// Criteria 控制 Fields 返回哪一类字段
type Criteria string

const (
	CriteriaRequired Criteria = "required"
	CriteriaOptional Criteria = "optional"
	// CriteriaAll 同时返回已收集的字段及其当前值
	CriteriaAll Criteria = "all"
)

// ParseCriteria 解析调用方传入的字符串，未知值按 required 处理
func ParseCriteria(s string) Criteria {
	switch Criteria(s) {
	case CriteriaOptional, CriteriaAll:
		return Criteria(s)
	default:
		return CriteriaRequired
	}
}

// FieldsRequest 是 Fields 的输入，FormData 为扁平的 路径 -> 值 映射
type FieldsRequest struct {
	FormData   map[string]any `json:"form_data"`
	ParentPath string         `json:"parent_path,omitempty"`
	Criteria   Criteria       `json:"criteria,omitempty"`
}

// CollectRequest 是 Collect 的输入，Updates 中的路径均为完整数据路径
type CollectRequest struct {
	FormData   map[string]any      `json:"form_data"`
	Updates    []types.FieldUpdate `json:"updates"`
	ParentPath string              `json:"parent_path,omitempty"`
}
